package service

import (
	"context"
	"testing"

	"fundarb/internal/domain/model"
)

// TestReconcileHedgeDetection 多空齐备才算对冲成立
func TestReconcileHedgeDetection(t *testing.T) {
	gate := &fakeAdapter{
		name: "gate",
		positions: []model.Position{
			{Symbol: "BTCUSDT", Side: model.SideLong, Contracts: 0.5, EntryPrice: 43000},
		},
	}
	bybit := &fakeAdapter{
		name: "bybit",
		positions: []model.Position{
			{Symbol: "BTCUSDT", Side: model.SideShort, Contracts: 0.5, EntryPrice: 43010},
			{Symbol: "ETHUSDT", Side: model.SideLong, Contracts: 2, EntryPrice: 2300},
		},
	}

	rec := NewPositionReconciler(enabledOf(gate, bybit))
	groups := rec.Reconcile(context.Background())

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	byToken := make(map[string]model.HedgedPositionGroup)
	for _, g := range groups {
		byToken[g.BaseToken] = g
	}

	btc := byToken["BTC"]
	if !btc.HasHedge {
		t.Error("BTC long+short should be a hedge")
	}
	if btc.Long == nil || btc.Long.Exchange != "gate" {
		t.Error("BTC long leg should come from gate")
	}
	if btc.Short == nil || btc.Short.Exchange != "bybit" {
		t.Error("BTC short leg should come from bybit")
	}

	eth := byToken["ETH"]
	if eth.HasHedge {
		t.Error("ETH with only a long must not be a hedge")
	}
	if eth.Short != nil {
		t.Error("ETH short should be absent")
	}
}

// TestReconcileFiltersFlatPositions contracts == 0 的行不进入任何分组
func TestReconcileFiltersFlatPositions(t *testing.T) {
	ad := &fakeAdapter{
		name: "binance",
		positions: []model.Position{
			{Symbol: "BTCUSDT", Side: model.SideLong, Contracts: 0},
			{Symbol: "ETHUSDT", Side: model.SideShort, Contracts: 1},
		},
	}

	rec := NewPositionReconciler(enabledOf(ad))
	groups := rec.Reconcile(context.Background())

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].BaseToken != "ETH" {
		t.Errorf("flat BTC position leaked into groups: %+v", groups[0])
	}
}

// TestReconcileAdapterFailure 单所失败贡献空列表，对账继续
func TestReconcileAdapterFailure(t *testing.T) {
	down := &fakeAdapter{name: "gate", posErr: errVenueDown}
	up := &fakeAdapter{
		name: "bybit",
		positions: []model.Position{
			{Symbol: "BTCUSDT", Side: model.SideShort, Contracts: 1},
		},
	}

	rec := NewPositionReconciler(enabledOf(down, up))
	groups := rec.Reconcile(context.Background())

	if len(groups) != 1 {
		t.Fatalf("expected 1 group from surviving adapter, got %d", len(groups))
	}
	if groups[0].HasHedge {
		t.Error("single short leg must not count as hedge")
	}
}
