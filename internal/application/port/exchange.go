package port

import (
	"context"

	"fundarb/internal/domain/model"
)

// Adapter 交易所能力集：核心从不直接碰交易所报文
// 所有网络调用都带 ctx；单次调用超时由适配层 HTTP 客户端负责
type Adapter interface {
	Name() string

	// GetFundingRates 拉取全部永续合约的资金费率数据
	GetFundingRates(ctx context.Context) ([]model.FundingRate, error)

	// FetchTicker 获取单个合约的最新价格
	FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error)

	// CalculateSlippagePrice 基于最新价计算滑点边界价
	// 买单可接受比现价高 slippagePercent，卖单可接受低 slippagePercent
	CalculateSlippagePrice(ctx context.Context, symbol, side string, slippagePercent float64) (float64, error)

	// SetLeverage 设置杠杆与全仓模式，"无变化" 视为成功
	SetLeverage(ctx context.Context, symbol string, leverage float64) error

	// CreateOrder 提交滑点保护的 IOC 市价单
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)

	// GetPositions 列出该所全部持仓
	GetPositions(ctx context.Context) ([]model.Position, error)

	// CloseAllPositions 平掉该合约的所有持仓：reduce-only 市价单，
	// 方向取反，数量取全部，逐条失败记录并继续
	CloseAllPositions(ctx context.Context, symbol string) ([]model.CloseResult, error)

	// MinOrderSize 该合约的最小下单量（币本位）
	MinOrderSize(symbol string) float64

	// Symbol 币种 -> 交易所原生交易对
	Symbol(baseToken string) string
	// BaseToken 交易所原生交易对 -> 币种
	BaseToken(symbol string) string
}

// AdapterResolver 按名称解析适配器：固定枚举，未注册返回明确错误
type AdapterResolver interface {
	Get(name string) (Adapter, error)
	Enabled() []Adapter // 注册顺序
}
