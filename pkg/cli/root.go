package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"CVECatalog/internal/config"
	"CVECatalog/internal/cvedb"
	"CVECatalog/internal/utils"
)

// App 所有子命令共享的状态：配置和按需打开的数据库
type App struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg        *config.Config
	logger     *utils.Logger
	newFetcher func(cfg *config.Config) cvedb.Fetcher
}

func NewApp() *App {
	return &App{
		logger: utils.NewLogger("cli"),
		newFetcher: func(cfg *config.Config) cvedb.Fetcher {
			return cvedb.NewCVEAPIClient(cfg.ClientOptions()...)
		},
	}
}

// NewRootCommand 构建命令树
func NewRootCommand(version string) *cobra.Command {
	return NewApp().RootCommand(version)
}

func (a *App) RootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "cvedb",
		Short:   "CVE漏洞目录管理工具",
		Version: version,
		Long: `cvedb 维护一个本地关系型漏洞目录：CVE、CWE、受影响的厂商/产品、参考链接以及状态历史，
并可以从 NVD 按编号摄取单条记录。

示例:
  cvedb init
  cvedb insert-sample
  cvedb search --keyword xss --severity high
  cvedb export-csv --outfile export.csv --start-date 2024-01-01
  cvedb set-status CVE-2024-12345 Investigating --note "triage"
  cvedb ingest CVE-2021-44228`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "配置文件路径 (默认: "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "数据库文件路径（覆盖配置文件）")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "显示详细信息")

	root.AddCommand(
		a.initCommand(),
		a.insertSampleCommand(),
		a.searchCommand(),
		a.exportCommand(),
		a.setStatusCommand(),
		a.ingestCommand(),
		a.showCommand(),
		a.linkCommand(),
		a.affectedByCommand(),
		a.deleteCommand(),
		a.statsCommand(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	utils.SetVerbose(a.verbose)

	path, explicit := a.configPath, a.configPath != ""
	if !explicit {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database = a.dbPath
	}
	a.cfg = cfg
	a.logger.Debug("数据库: %s", cfg.Database)
	return nil
}

func (a *App) openDB() (*cvedb.CVEDatabase, error) {
	db, err := cvedb.NewCVEDatabase(a.cfg.Database)
	if err != nil {
		return nil, xerrors.Errorf("初始化CVE数据库失败: %w", err)
	}
	return db, nil
}
