package exchange

import (
	"context"
	"errors"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type stubAdapter struct {
	port.Adapter
	name string
}

func (s *stubAdapter) Name() string { return s.name }

func TestRegistryRejectsUnknownExchange(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubAdapter{name: "deribit"}); err == nil {
		t.Fatal("expected error for unknown exchange")
	} else if !errors.Is(err, model.ErrUnsupportedExchange) {
		t.Fatalf("expected ErrUnsupportedExchange, got %v", err)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubAdapter{name: ExchangeBinance}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(&stubAdapter{name: ExchangeBinance}); err == nil {
		t.Fatal("expected error for duplicate register")
	}
}

func TestRegistryEnabledOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{ExchangeGate, ExchangeBinance, ExchangeBybit} {
		if err := r.Register(&stubAdapter{name: name}); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}

	enabled := r.Enabled()
	want := []string{ExchangeGate, ExchangeBinance, ExchangeBybit}
	if len(enabled) != len(want) {
		t.Fatalf("expected %d adapters, got %d", len(want), len(enabled))
	}
	for i, ad := range enabled {
		if ad.Name() != want[i] {
			t.Errorf("enabled[%d] = %s, want %s", i, ad.Name(), want[i])
		}
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(ExchangeBybit); !errors.Is(err, model.ErrUnsupportedExchange) {
		t.Fatalf("expected ErrUnsupportedExchange, got %v", err)
	}
}

func TestSymbolConverterRoundTrip(t *testing.T) {
	cases := []struct {
		separator string
		quote     string
		coin      string
		symbol    string
	}{
		{"", "USDT", "BTC", "BTCUSDT"},
		{"", "USDT", "ETH", "ETHUSDT"},
		{"_", "USDT", "BTC", "BTC_USDT"},
		{"_", "USDT", "SOL", "SOL_USDT"},
	}

	for _, tc := range cases {
		c := NewCommonSymbolConverter(tc.separator, tc.quote)
		if got := c.Coin2Symbol(tc.coin); got != tc.symbol {
			t.Errorf("Coin2Symbol(%s) = %s, want %s", tc.coin, got, tc.symbol)
		}
		if got := c.Symbol2Coin(tc.symbol); got != tc.coin {
			t.Errorf("Symbol2Coin(%s) = %s, want %s", tc.symbol, got, tc.coin)
		}
		// 往返一致
		if got := c.Symbol2Coin(c.Coin2Symbol(tc.coin)); got != tc.coin {
			t.Errorf("round trip for %s = %s", tc.coin, got)
		}
	}
}

func TestSymbolConverterIdempotent(t *testing.T) {
	c := NewCommonSymbolConverter("", "USDT")
	if got := c.Coin2Symbol("BTCUSDT"); got != "BTCUSDT" {
		t.Errorf("Coin2Symbol(BTCUSDT) = %s, want BTCUSDT", got)
	}
	if got := c.Coin2Symbol("btc"); got != "BTCUSDT" {
		t.Errorf("Coin2Symbol(btc) = %s, want BTCUSDT", got)
	}
}

func TestSlippagePrice(t *testing.T) {
	if got := SlippagePrice(100, model.SideBuy, 0.005); got != 100.5 {
		t.Errorf("buy bound = %f, want 100.5", got)
	}
	if got := SlippagePrice(100, model.SideSell, 0.005); got != 99.5 {
		t.Errorf("sell bound = %f, want 99.5", got)
	}
	if got := SlippagePrice(100, model.SideBuy, 0); got != 100 {
		t.Errorf("zero slippage bound = %f, want 100", got)
	}
}

func TestGetJSONCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var v map[string]interface{}
	if err := GetJSON(ctx, NewHTTPClient(), "http://127.0.0.1:0/none", &v); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
