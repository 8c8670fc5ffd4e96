package monitor

import (
	"strings"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func tick(ex, coin, price string) port.Tick {
	return port.Tick{Exchange: ex, BaseToken: coin, PriceStr: price}
}

func TestStateApplyDirection(t *testing.T) {
	st := NewState([]string{"BTC"})

	if !st.Apply(tick("binance", "BTC", "65000")) {
		t.Fatal("first price should trigger refresh")
	}
	if !st.Apply(tick("binance", "BTC", "65100")) {
		t.Fatal("higher price should trigger refresh")
	}

	prices := st.ExchangePrices("BTC")
	ps, ok := prices["binance"]
	if !ok {
		t.Fatal("binance price missing")
	}
	if ps.dir != DirUp {
		t.Errorf("expected DirUp, got %v", ps.dir)
	}
	if ps.num != 65100 {
		t.Errorf("expected 65100, got %f", ps.num)
	}
}

func TestStateApplySamePriceNoRefresh(t *testing.T) {
	st := NewState([]string{"ETH"})

	st.Apply(tick("bybit", "ETH", "3000"))
	if st.Apply(tick("bybit", "ETH", "3000")) {
		t.Error("unchanged price should not trigger refresh")
	}
}

func TestStateIgnoresUnknownToken(t *testing.T) {
	st := NewState([]string{"BTC"})

	if st.Apply(tick("binance", "DOGE", "0.1")) {
		t.Error("unknown token should be ignored")
	}
}

func TestFormatterRenderOpportunities(t *testing.T) {
	f := NewFormatter(0.0001)
	snap := &model.Snapshot{
		FundingRates: []model.FundingRate{{BaseToken: "BTC"}, {BaseToken: "BTC"}},
		Opportunities: []model.ArbitrageOpportunity{
			{BaseToken: "BTC", LongExchange: "binance", ShortExchange: "bybit", LongRate: 0.0001, ShortRate: 0.0006, RateDifference: 0.0005},
			{BaseToken: "ETH", LongExchange: "gate", ShortExchange: "binance", LongRate: -0.0001, ShortRate: 0.0000, RateDifference: 0.0001},
		},
	}

	lines := f.RenderOpportunities(snap, 10)
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "BTC") || !strings.Contains(lines[1], "binance") {
		t.Errorf("unexpected first line: %s", lines[1])
	}

	// top 截断
	lines = f.RenderOpportunities(snap, 1)
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 line with top=1, got %d", len(lines))
	}
}

func TestFormatterRenderOpportunitiesEmpty(t *testing.T) {
	f := NewFormatter(0.0001)
	lines := f.RenderOpportunities(&model.Snapshot{}, 10)
	if len(lines) != 2 {
		t.Fatalf("expected header + placeholder, got %d", len(lines))
	}
}
