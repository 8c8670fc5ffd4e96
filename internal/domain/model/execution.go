package model

import (
	"errors"
	"fmt"
)

// TradeIntent 对冲开仓请求，消费一次即丢弃
type TradeIntent struct {
	BaseToken       string  `json:"base_token"`
	LongExchange    string  `json:"long_exchange"`
	ShortExchange   string  `json:"short_exchange"`
	PositionSize    float64 `json:"position_size"` // 以计价货币为单位的名义仓位
	Leverage        float64 `json:"leverage"`
	SlippagePercent float64 `json:"slippage_percent"`
}

// Validate 请求级校验：缺字段直接拒绝整个操作
func (ti *TradeIntent) Validate() error {
	switch {
	case ti.BaseToken == "":
		return errors.New("trade intent: base token is empty")
	case ti.LongExchange == "" || ti.ShortExchange == "":
		return errors.New("trade intent: both exchanges are required")
	case ti.LongExchange == ti.ShortExchange:
		return fmt.Errorf("trade intent: long and short exchange are the same: %s", ti.LongExchange)
	case ti.PositionSize <= 0:
		return fmt.Errorf("trade intent: position size must be > 0, got %f", ti.PositionSize)
	case ti.Leverage < 1:
		return fmt.Errorf("trade intent: leverage must be >= 1, got %f", ti.Leverage)
	case ti.SlippagePercent < 0:
		return fmt.Errorf("trade intent: slippage percent must be >= 0, got %f", ti.SlippagePercent)
	}
	return nil
}

// Order 订单确认
type Order struct {
	ID         string  `json:"id"`
	Exchange   string  `json:"exchange"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // buy | sell
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"` // 滑点保护限价
	ReduceOnly bool    `json:"reduce_only"`
	Timestamp  int64   `json:"ts_ms"`
}

// OrderRequest 市价单（带滑点保护）请求
type OrderRequest struct {
	Symbol     string
	Side       string  // buy | sell
	Quantity   float64 // 合约数量（币本位）
	Price      float64 // 滑点边界价，IOC
	ReduceOnly bool
}

// Execution status values
const (
	StatusBothFilled    = "both_filled"
	StatusPartialFilled = "partial_filled"
	StatusBothFailed    = "both_failed"
)

// LegResult 单腿执行结果，Order 与 Err 互斥
type LegResult struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Order    *Order  `json:"order,omitempty"`
	Err      string  `json:"error,omitempty"`
	Price    float64 `json:"price,omitempty"` // 实际使用的滑点边界价
}

// Filled 该腿是否成交
func (lr *LegResult) Filled() bool { return lr.Order != nil && lr.Err == "" }

// ExecutionReport 双腿执行报告，永远逐腿给出结果
type ExecutionReport struct {
	Status    string    `json:"status"` // both_filled | partial_filled | both_failed
	BaseToken string    `json:"base_token"`
	LongLeg   LegResult `json:"long_leg"`
	ShortLeg  LegResult `json:"short_leg"`
	Quantity  float64   `json:"quantity"` // positionSize / leverage，仅供参考
	Timestamp int64     `json:"ts_ms"`
}

// Success 两腿都成交
func (er *ExecutionReport) Success() bool { return er.Status == StatusBothFilled }

// CloseResult 单个交易所单个合约的平仓结果
type CloseResult struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Closed   bool   `json:"closed"`
	Err      string `json:"error,omitempty"`
}

// PartialHedgeRecord 半腿敞口记录，等待人工处理
// 只记录不自动回滚：回滚本身也可能失败，留给操作者决策
type PartialHedgeRecord struct {
	ID             string `json:"id"`
	BaseToken      string `json:"base_token"`
	FilledExchange string `json:"filled_exchange"`
	FilledSide     string `json:"filled_side"`
	FilledOrderID  string `json:"filled_order_id"`
	FailedExchange string `json:"failed_exchange"`
	FailedReason   string `json:"failed_reason"`
	CreatedAt      int64  `json:"created_at"`
	Resolved       bool   `json:"resolved"`
}
