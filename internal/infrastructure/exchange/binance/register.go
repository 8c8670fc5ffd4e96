package binance

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
	"fundarb/internal/infrastructure/pricefeed"
)

// init() automatically registers Binance WebSocket price feed factory
// 这样避免了在组装代码中硬编码 Binance
func init() {
	pricefeed.Register(exchange.ExchangeBinance, func(wsURL string) port.PriceFeed {
		return NewMarkPriceFeed(wsURL)
	})
}
