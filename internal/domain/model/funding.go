package model

// FundingRate 单个交易所单个合约的资金费率快照
// 每个聚合周期整体重建，不做增量修改
type FundingRate struct {
	Exchange         string  `json:"exchange"`
	Symbol           string  `json:"symbol"`     // 交易所原生交易对，如 BTCUSDT / BTC_USDT
	BaseToken        string  `json:"base_token"` // 标准化币种，如 BTC
	MarkPrice        float64 `json:"mark_price"`
	IndexPrice       float64 `json:"index_price"`
	FundingRate      float64 `json:"funding_rate"`      // 周期费率，非年化
	FundingTimestamp int64   `json:"funding_timestamp"` // 下次结算时间戳（毫秒）
	Interval         string  `json:"interval"`          // 结算周期，如 "8h"
}

// ArbitrageOpportunity 一个币种的跨所对冲候选
// LongRate <= ShortRate 恒成立，RateDifference = ShortRate - LongRate
type ArbitrageOpportunity struct {
	BaseToken      string  `json:"base_token"`
	LongExchange   string  `json:"long_exchange"`  // 费率低的交易所做多
	ShortExchange  string  `json:"short_exchange"` // 费率高的交易所做空
	LongRate       float64 `json:"long_rate"`
	ShortRate      float64 `json:"short_rate"`
	RateDifference float64 `json:"rate_difference"`

	LongMarkPrice    float64 `json:"long_mark_price"`
	LongIndexPrice   float64 `json:"long_index_price"`
	LongNextFunding  int64   `json:"long_next_funding"`
	ShortMarkPrice   float64 `json:"short_mark_price"`
	ShortIndexPrice  float64 `json:"short_index_price"`
	ShortNextFunding int64   `json:"short_next_funding"`

	Timestamp int64 `json:"ts_ms"`
}

// Snapshot 聚合输出：费率 + 套利机会
type Snapshot struct {
	FundingRates  []FundingRate          `json:"funding_rates"`
	Opportunities []ArbitrageOpportunity `json:"arbitrage_opportunities"`
	GeneratedAt   int64                  `json:"generated_at"` // unix ms
}

// Ticker 行情快照
type Ticker struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Mark   float64 `json:"mark"`
	Index  float64 `json:"index"`
}
