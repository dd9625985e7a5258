package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"

	"CVECatalog/internal/cvedb"
	"CVECatalog/internal/utils"
)

// DefaultPath 未指定 --config 时尝试读取的文件
const DefaultPath = "cvedb.toml"

// Config holds configuration for the catalog
type Config struct {
	// Database sqlite文件路径
	Database string `toml:"database"`

	NVD NVDConfig `toml:"nvd"`
}

// NVDConfig 外部feed设置
type NVDConfig struct {
	BaseURL string        `toml:"base_url"`
	APIKey  string        `toml:"api_key"`
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: "database/cve_catalog.db",
		NVD: NVDConfig{
			BaseURL: cvedb.DefaultNVDBaseURL,
			Timeout: cvedb.DefaultNVDTimeout,
		},
	}
}

// Load 默认值 < 配置文件 < 环境变量。
// explicit 为 true 时配置文件必须存在。
func Load(path string, explicit bool) (*Config, error) {
	logger := utils.NewLogger("config")
	cfg := DefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			logger.Debug("未找到配置文件 %s，使用默认配置", path)
		case err != nil:
			return nil, xerrors.Errorf("failed to load config %s: %w", path, err)
		default:
			for _, key := range md.Undecoded() {
				logger.Warn("配置文件 %s 中未知的配置项: %s", path, key.String())
			}
		}
	}

	applyEnv(cfg)

	if cfg.NVD.Timeout <= 0 {
		return nil, xerrors.Errorf("invalid nvd.timeout %s: must be positive", cfg.NVD.Timeout)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CVEDB_DATABASE")); v != "" {
		cfg.Database = v
	}
	if v := strings.TrimSpace(os.Getenv("NVD_API_KEY")); v != "" {
		cfg.NVD.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("NVD_BASE_URL")); v != "" {
		cfg.NVD.BaseURL = v
	}
}

// ClientOptions 转换为API客户端选项
func (c *Config) ClientOptions() []cvedb.Option {
	return []cvedb.Option{
		cvedb.WithBaseURL(c.NVD.BaseURL),
		cvedb.WithAPIKey(c.NVD.APIKey),
		cvedb.WithTimeout(c.NVD.Timeout),
	}
}
