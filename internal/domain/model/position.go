package model

// Side 持仓/订单方向
const (
	SideLong  = "long"
	SideShort = "short"
	SideBuy   = "buy"
	SideSell  = "sell"
)

// Position 单个交易所视角的一条持仓
// 同一 (exchange, symbol) 最多一条 long、一条 short
type Position struct {
	Exchange      string  `json:"exchange"`
	Symbol        string  `json:"symbol"`
	BaseToken     string  `json:"base_token"`
	Side          string  `json:"side"` // long | short
	Contracts     float64 `json:"contracts"`
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// HedgedPositionGroup 按币种汇总的对冲视图，每次对账重新计算
type HedgedPositionGroup struct {
	BaseToken string    `json:"base_token"`
	Long      *Position `json:"long,omitempty"`
	Short     *Position `json:"short,omitempty"`
	HasHedge  bool      `json:"has_hedge"`
}

// CloseSide 平仓方向：反转持仓方向
func CloseSide(positionSide string) string {
	if positionSide == SideLong {
		return SideSell
	}
	return SideBuy
}
