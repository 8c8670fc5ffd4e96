package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// MarkPriceFeed Binance 标记价格流
// 订阅组合流 <symbol>@markPrice@1s
type MarkPriceFeed struct {
	wsURL     string // e.g. wss://fstream.binance.com
	converter exchange.SymbolConverter
}

var _ port.PriceFeed = (*MarkPriceFeed)(nil)

// NewMarkPriceFeed 创建 Binance 标记价格流
func NewMarkPriceFeed(wsURL string) *MarkPriceFeed {
	return &MarkPriceFeed{
		wsURL:     strings.TrimSpace(wsURL),
		converter: exchange.NewCommonSymbolConverter("", "USDT"),
	}
}

func (f *MarkPriceFeed) Name() string { return exchange.ExchangeBinance }

type binanceCombined struct {
	Stream string             `json:"stream"`
	Data   binanceMarkPxEvent `json:"data"`
}

type binanceMarkPxEvent struct {
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
	EventTime int64  `json:"E"`
}

// Subscribe 订阅一组币种的标记价格
func (f *MarkPriceFeed) Subscribe(ctx context.Context, baseTokens []string) (<-chan port.Tick, error) {
	symbols := make([]string, 0, len(baseTokens))
	for _, coin := range baseTokens {
		coin = strings.TrimSpace(coin)
		if coin == "" {
			continue
		}
		symbols = append(symbols, f.converter.Coin2Symbol(coin))
	}

	wsURL, err := buildCombinedURL(f.wsURL, symbols)
	if err != nil {
		return nil, err
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, wsURL, out)
	return out, nil
}

func buildCombinedURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}
	if len(symbols) == 0 {
		return "", errors.New("symbols empty")
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s@markPrice@1s", s))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (f *MarkPriceFeed) run(ctx context.Context, wsURL string, out chan<- port.Tick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	helper := &exchange.WSHelper{URL: wsURL}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, err := helper.DialWS(cctx)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected")

		err = helper.ReadWithPing(ctx, conn, func(b []byte) {
			var msg binanceCombined
			if e := json.Unmarshal(b, &msg); e != nil {
				log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
				return
			}
			sym := strings.ToUpper(msg.Data.Symbol)
			pxs := strings.TrimSpace(msg.Data.MarkPrice)
			if sym == "" || pxs == "" {
				return
			}
			pxn, _ := strconv.ParseFloat(pxs, 64)
			tick := port.Tick{
				Exchange:  f.Name(),
				BaseToken: f.converter.Symbol2Coin(sym),
				PriceStr:  pxs,
				PriceNum:  pxn,
				Ts:        time.Now().UnixMilli(),
			}
			// 缓冲满且下游已随 ctx 退出时不能死等，
			// 否则 close(out) 会撞上还卡在推送里的协程
			select {
			case out <- tick:
			case <-ctx.Done():
			}
		})

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = exchange.MinDuration(backoff*2, maxBackoff)
	}
}
