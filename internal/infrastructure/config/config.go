package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ExchangeConfig 单个交易所的接入配置
type ExchangeConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	HTTPURL   string `toml:"http_url"`
	WsURL     string `toml:"ws_url"` // 可选：标记价格流
}

type Config struct {
	App struct {
		RefreshEverySec int `toml:"refresh_every_sec"`
		Top             int `toml:"top"`
	} `toml:"app"`

	Tokens struct {
		List []string `toml:"list"`
	} `toml:"tokens"`

	Arbitrage struct {
		Policy    string  `toml:"policy"` // pairwise | extremal
		Threshold float64 `toml:"threshold"`
		Limit     int     `toml:"limit"`
	} `toml:"arbitrage"`

	Cache struct {
		TTLSec int `toml:"ttl_sec"`
	} `toml:"cache"`

	Execution struct {
		Leverage        float64 `toml:"leverage"`
		SlippagePercent float64 `toml:"slippage_percent"`
	} `toml:"execution"`

	Exchange map[string]ExchangeConfig `toml:"exchange"`

	Storage struct {
		SQLitePath  string `toml:"sqlite_path"`
		RedisAddr   string `toml:"redis_addr"`
		RedisPrefix string `toml:"redis_prefix"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	applyDefaults(&cfg, md)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.App.RefreshEverySec <= 0 {
		cfg.App.RefreshEverySec = 60
	}
	if cfg.App.Top <= 0 {
		cfg.App.Top = 10
	}
	if cfg.Arbitrage.Policy == "" {
		cfg.Arbitrage.Policy = "pairwise"
	}
	// 显式的 0 是合法阈值（极值策略产出所有差值 >= 0 的配对），
	// 只有完全未配置时才回退默认值
	if !md.IsDefined("arbitrage", "threshold") {
		cfg.Arbitrage.Threshold = 0.0001
	}
	if cfg.Arbitrage.Limit <= 0 {
		cfg.Arbitrage.Limit = 10
	}
	if cfg.Cache.TTLSec <= 0 {
		cfg.Cache.TTLSec = 60
	}
	if cfg.Execution.Leverage < 1 {
		cfg.Execution.Leverage = 1
	}
	if cfg.Execution.SlippagePercent <= 0 {
		cfg.Execution.SlippagePercent = 0.001
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = "fundarb"
	}
}

func validate(cfg *Config) error {
	cfg.Tokens.List = normalizeTokens(cfg.Tokens.List)

	switch cfg.Arbitrage.Policy {
	case "pairwise", "extremal":
	default:
		return fmt.Errorf("arbitrage.policy must be pairwise or extremal, got %q", cfg.Arbitrage.Policy)
	}

	if cfg.Arbitrage.Threshold < 0 {
		return fmt.Errorf("arbitrage.threshold must be >= 0, got %g", cfg.Arbitrage.Threshold)
	}

	enabled := 0
	for name, ex := range cfg.Exchange {
		if !supportedExchange(name) {
			return fmt.Errorf("exchange.%s: unsupported exchange", name)
		}
		if !ex.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(ex.HTTPURL) == "" {
			return fmt.Errorf("exchange.%s.http_url empty but enabled", name)
		}
	}
	if enabled == 0 {
		return errors.New("no exchange enabled")
	}
	return nil
}

// 固定枚举顺序, 保证启动时的注册顺序稳定
var exchangeOrder = []string{"binance", "bybit", "gate"}

func supportedExchange(name string) bool {
	for _, n := range exchangeOrder {
		if n == name {
			return true
		}
	}
	return false
}

// EnabledExchanges 启用的交易所名称，固定小写、固定顺序
func (cfg *Config) EnabledExchanges() []string {
	out := make([]string, 0, len(cfg.Exchange))
	for _, name := range exchangeOrder {
		if ex, ok := cfg.Exchange[name]; ok && ex.Enabled {
			out = append(out, name)
		}
	}
	return out
}

func normalizeTokens(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
