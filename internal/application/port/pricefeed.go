package port

import "context"

// Tick 标记价格推送
type Tick struct {
	Exchange  string  // "binance" "bybit"
	BaseToken string  // "BTC"
	PriceStr  string  // raw string
	PriceNum  float64 // parsed float64 (best-effort)
	Ts        int64   // unix ms
}

// PriceFeed 标记价格流：快照刷新间隙的实时腿价来源
type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, baseTokens []string) (<-chan Tick, error)
}
