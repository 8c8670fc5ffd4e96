package bybit

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
	"fundarb/internal/infrastructure/pricefeed"
)

// init() automatically registers Bybit WebSocket price feed factory
// 这样避免了在组装代码中硬编码 Bybit
func init() {
	pricefeed.Register(exchange.ExchangeBybit, func(wsURL string) port.PriceFeed {
		return NewMarkPriceFeed(wsURL)
	})
}
