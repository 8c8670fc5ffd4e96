package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[tokens]
list = ["btc", "eth", "BTC", ""]

[exchange.binance]
enabled = true
http_url = "https://fapi.binance.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Cache.TTLSec != 60 {
		t.Errorf("ttl default wrong: %d", cfg.Cache.TTLSec)
	}
	if cfg.Arbitrage.Threshold != 0.0001 {
		t.Errorf("threshold default wrong: %g", cfg.Arbitrage.Threshold)
	}
	if cfg.Arbitrage.Policy != "pairwise" {
		t.Errorf("policy default wrong: %s", cfg.Arbitrage.Policy)
	}
	if cfg.Execution.Leverage != 1 {
		t.Errorf("leverage default wrong: %g", cfg.Execution.Leverage)
	}

	// 去重并大写
	if len(cfg.Tokens.List) != 2 || cfg.Tokens.List[0] != "BTC" || cfg.Tokens.List[1] != "ETH" {
		t.Errorf("token normalization wrong: %v", cfg.Tokens.List)
	}
}

func TestLoadRejectsNoExchange(t *testing.T) {
	path := writeConfig(t, `
[tokens]
list = ["BTC"]

[exchange.binance]
enabled = false
`)

	if _, err := Load(path); err == nil {
		t.Error("config with no enabled exchange should be rejected")
	}
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	path := writeConfig(t, `
[arbitrage]
policy = "greedy"

[exchange.binance]
enabled = true
http_url = "https://fapi.binance.com"
`)

	if _, err := Load(path); err == nil {
		t.Error("unknown policy should be rejected")
	}
}

func TestLoadRejectsEnabledWithoutURL(t *testing.T) {
	path := writeConfig(t, `
[exchange.gate]
enabled = true
`)

	if _, err := Load(path); err == nil {
		t.Error("enabled exchange without http_url should be rejected")
	}
}

func TestLoadRejectsUnknownExchange(t *testing.T) {
	path := writeConfig(t, `
[exchange.okx]
enabled = true
http_url = "https://www.okx.com"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported exchange")
	}
}

func TestEnabledExchangesFixedOrder(t *testing.T) {
	path := writeConfig(t, `
[exchange.gate]
enabled = true
http_url = "https://api.gateio.ws"

[exchange.binance]
enabled = true
http_url = "https://fapi.binance.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	got := cfg.EnabledExchanges()
	want := []string{"binance", "gate"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadKeepsExplicitZeroThreshold(t *testing.T) {
	path := writeConfig(t, `
[arbitrage]
threshold = 0.0

[exchange.binance]
enabled = true
http_url = "https://fapi.binance.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Arbitrage.Threshold != 0 {
		t.Errorf("explicit zero threshold overwritten: %g", cfg.Arbitrage.Threshold)
	}
}

func TestLoadRejectsNegativeThreshold(t *testing.T) {
	path := writeConfig(t, `
[arbitrage]
threshold = -0.0001

[exchange.binance]
enabled = true
http_url = "https://fapi.binance.com"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}
