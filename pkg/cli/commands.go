package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"CVECatalog/internal/cvedb"
	"CVECatalog/internal/model"
)

var (
	success = color.New(color.FgGreen)
	notice  = color.New(color.FgYellow)
)

func (a *App) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "创建所有数据表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			hasData, err := db.HasData(cmd.Context())
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "✅ 数据库初始化完成: %s\n", db.Path())
			if hasData {
				notice.Fprintln(cmd.OutOrStdout(), "数据库中已有CVE数据，未做修改")
			}
			return nil
		},
	}
}

func (a *App) insertSampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "insert-sample",
		Short: "写入两条演示CVE以及厂商、产品和参考链接",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InsertSample(cmd.Context()); err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), "🌱 演示数据已写入")
			return nil
		},
	}
}

func (a *App) searchCommand() *cobra.Command {
	var opts FilterOptions
	var format string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "按关键字、严重性、日期范围查询CVE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.Filter(true)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.Search(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return NewOutputFormatter(format, cmd.OutOrStdout()).PrintRows(rows)
		},
	}
	opts.bind(cmd, true)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "输出格式 (text, json)")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var opts FilterOptions
	var outfile string

	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "将查询结果导出为CSV（过滤条件同 search）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.Filter(false)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.Export(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if err := ExportCSV(outfile, rows); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "📦 已导出 %d 行 -> %s\n", len(rows), outfile)
			return nil
		},
	}
	opts.bind(cmd, false)
	cmd.Flags().StringVarP(&outfile, "outfile", "o", "export.csv", "CSV输出路径")
	return cmd
}

func (a *App) setStatusCommand() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "set-status CVE_ID STATUS",
		Short: "记录状态变更并更新CVE当前状态",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cveID := strings.TrimSpace(args[0])
			if err := db.SetStatus(cmd.Context(), cveID, args[1], note); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "📝 %s 状态已更新为 %s\n", cveID, strings.TrimSpace(args[1]))
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "备注")
	return cmd
}

func (a *App) ingestCommand() *cobra.Command {
	var resetStatus bool

	cmd := &cobra.Command{
		Use:   "ingest CVE_ID",
		Short: "从NVD获取单条CVE并写入数据库",
		Long: `从NVD获取单条CVE并写入数据库。

重复摄取已存在的CVE会更新其字段，但保留当前状态；
使用 --reset-status 显式把状态重置为 New（并记录到状态历史）。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cveID, err := model.NormalizeCVEID(args[0])
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ingestor := cvedb.NewIngestor(a.newFetcher(a.cfg), db)
			res, err := ingestor.Ingest(cmd.Context(), cveID, cvedb.UpsertOptions{ResetStatus: resetStatus})
			if xerrors.Is(err, cvedb.ErrNotFound) {
				notice.Fprintf(cmd.OutOrStdout(), "ℹ️  NVD中没有找到 %s，未写入任何数据\n", cveID)
				return nil
			}
			if err != nil {
				return err
			}

			action := "已更新"
			if res.Created {
				action = "已新建"
			}
			success.Fprintf(cmd.OutOrStdout(), "📥 %s %s (CVSS %s, 参考链接 +%d/%d)\n",
				action, res.Record.Vulnerability.ID, formatScore(res.Record.Vulnerability.CVSSScore),
				res.ReferencesAdded, res.ReferencesTotal)
			if res.StatusReset {
				notice.Fprintf(cmd.OutOrStdout(), "状态已重置为 %s\n", model.InitialStatus)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetStatus, "reset-status", false, "重新摄取时把状态重置为 New")
	return cmd
}

func (a *App) showCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show CVE_ID",
		Short: "显示单个CVE的详细信息、参考链接、受影响产品和状态历史",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			detail, err := db.Detail(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return NewOutputFormatter(format, cmd.OutOrStdout()).PrintDetail(detail)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "输出格式 (text, json)")
	return cmd
}

func (a *App) linkCommand() *cobra.Command {
	var opts RangeOptions

	cmd := &cobra.Command{
		Use:   "link CVE_ID VENDOR PRODUCT",
		Short: "将CVE关联到厂商/产品（不存在则创建），可指定受影响版本范围",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := opts.Range()
			if err := cvedb.ValidateRange(rng); err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cveID := strings.TrimSpace(args[0])
			if err := db.LinkAffected(cmd.Context(), cveID, args[1], args[2], rng); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "🔗 %s -> %s:%s %s\n",
				cveID, strings.TrimSpace(args[1]), strings.TrimSpace(args[2]), FormatRange(rng))
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func (a *App) affectedByCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "affected-by VENDOR PRODUCT VERSION",
		Short: "列出影响指定产品版本的CVE",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			matches, err := cvedb.NewVersionMatcher(db).LookupCVEsByVersion(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return NewOutputFormatter(format, cmd.OutOrStdout()).PrintMatches(matches)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "输出格式 (text, json)")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CVE_ID",
		Short: "删除CVE（参考链接、关联、状态历史和原始数据一并删除）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			cveID := strings.TrimSpace(args[0])
			if err := db.DeleteVulnerability(cmd.Context(), cveID); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "🗑️  已删除 %s\n", cveID)
			return nil
		},
	}
}

func (a *App) statsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "显示各表的行数",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := db.Counts(cmd.Context())
			if err != nil {
				return err
			}
			return NewOutputFormatter(format, cmd.OutOrStdout()).PrintCounts(counts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "输出格式 (text, json)")
	return cmd
}

// Execute 运行命令并把错误转换为退出码
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(root.ErrOrStderr(), "错误: %v\n", err)
		return 1
	}
	return 0
}
