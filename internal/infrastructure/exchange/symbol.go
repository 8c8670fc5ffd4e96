package exchange

import (
	"strings"
)

// SymbolConverter 符号转换接口
// 各交易所实现此接口, 在基础币种与交易所本地交易对之间转换
type SymbolConverter interface {
	// Symbol2Coin 将交易对转换为基础币种
	// 例: BTCUSDT -> BTC, BTC_USDT -> BTC
	Symbol2Coin(symbol string) string

	// Coin2Symbol 将基础币种转换为交易对
	// 例: BTC -> BTCUSDT
	Coin2Symbol(coin string) string

	// QuoteSuffix 返回计价后缀
	// 例: USDT, _USDT
	QuoteSuffix() string
}

// CommonSymbolConverter 通用符号转换器
// separator 为基础币种与计价币种之间的分隔符, binance/bybit 为空, gate 为 "_"
type CommonSymbolConverter struct {
	separator string
	quote     string
}

// NewCommonSymbolConverter 创建通用符号转换器
func NewCommonSymbolConverter(separator, quote string) *CommonSymbolConverter {
	return &CommonSymbolConverter{
		separator: separator,
		quote:     strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// QuoteSuffix 返回计价后缀 (含分隔符)
func (c *CommonSymbolConverter) QuoteSuffix() string {
	return c.separator + c.quote
}

// Symbol2Coin 将交易对转换为基础币种
// 例: BTCUSDT -> BTC, BTC_USDT -> BTC, 不匹配后缀时原样返回
func (c *CommonSymbolConverter) Symbol2Coin(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return ""
	}
	return strings.TrimSuffix(sym, c.QuoteSuffix())
}

// Coin2Symbol 将基础币种转换为交易对
// 例: BTC -> BTCUSDT, BTCUSDT -> BTCUSDT
func (c *CommonSymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}

	// 已经是完整交易对则直接返回
	if strings.HasSuffix(coin, c.QuoteSuffix()) {
		return coin
	}
	return coin + c.QuoteSuffix()
}
