package model

import (
	"errors"
	"fmt"
)

// 错误分类：逐腿/逐所错误在边界处被捕获并转为结构化结果，
// 只有请求级的参数错误直接使整个操作失败
var (
	// ErrAdapterUnavailable 网络/超时/鉴权失败，该所本轮贡献为空
	ErrAdapterUnavailable = errors.New("exchange adapter unavailable")

	// ErrSymbolResolution 币种在该交易所没有对应合约
	ErrSymbolResolution = errors.New("symbol resolution failed")

	// ErrOrderRejected 交易所拒单，逐腿上报，不影响另一腿
	ErrOrderRejected = errors.New("order rejected by venue")

	// ErrInsufficientSize 计算出的合约数低于交易所最小下单量，提交前拦截
	ErrInsufficientSize = errors.New("order size below venue minimum")

	// ErrUnsupportedExchange 不在启用的交易所枚举内
	ErrUnsupportedExchange = errors.New("unsupported exchange")
)

// PartialHedgeError 一腿成交一腿失败：真实风险敞口
// 必须与完全失败区分开，调用方据此人工处理
type PartialHedgeError struct {
	Report *ExecutionReport
}

func (e *PartialHedgeError) Error() string {
	filled, failed := e.Report.LongLeg, e.Report.ShortLeg
	if !filled.Filled() {
		filled, failed = e.Report.ShortLeg, e.Report.LongLeg
	}
	return fmt.Sprintf("partial hedge on %s: %s %s filled, %s failed: %s",
		e.Report.BaseToken, filled.Exchange, filled.Side, failed.Exchange, failed.Err)
}
