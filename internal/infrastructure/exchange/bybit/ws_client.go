package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// MarkPriceFeed Bybit 标记价格流
// 订阅 V5 public linear 频道的 tickers.<symbol> 主题
type MarkPriceFeed struct {
	wsURL     string // e.g. wss://stream.bybit.com/v5/public/linear
	converter exchange.SymbolConverter
}

var _ port.PriceFeed = (*MarkPriceFeed)(nil)

// NewMarkPriceFeed 创建 Bybit 标记价格流
func NewMarkPriceFeed(wsURL string) *MarkPriceFeed {
	return &MarkPriceFeed{
		wsURL:     strings.TrimSpace(wsURL),
		converter: exchange.NewCommonSymbolConverter("", "USDT"),
	}
}

func (f *MarkPriceFeed) Name() string { return exchange.ExchangeBybit }

type bybitSubReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type bybitTickerItem struct {
	Symbol    string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
}

// data can be object OR array
type bybitDataList []bybitTickerItem

func (d *bybitDataList) UnmarshalJSON(b []byte) error {
	b = bytesTrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = nil
		return nil
	}
	switch b[0] {
	case '[':
		var arr []bybitTickerItem
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*d = arr
		return nil
	case '{':
		var one bybitTickerItem
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*d = bybitDataList{one}
		return nil
	default:
		return fmt.Errorf("unexpected data json: %s", string(b))
	}
}

func bytesTrimSpace(b []byte) []byte {
	i := 0
	j := len(b) - 1
	for i <= j && (b[i] == ' ' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	for j >= i && (b[j] == ' ' || b[j] == '\n' || b[j] == '\r' || b[j] == '\t') {
		j--
	}
	if i > j {
		return []byte{}
	}
	return b[i : j+1]
}

type bybitTickerMsg struct {
	Topic string        `json:"topic"`
	Type  string        `json:"type"`
	Ts    int64         `json:"ts"`
	Data  bybitDataList `json:"data"`

	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

// Subscribe 订阅一组币种的标记价格
func (f *MarkPriceFeed) Subscribe(ctx context.Context, baseTokens []string) (<-chan port.Tick, error) {
	if f.wsURL == "" {
		return nil, errors.New("bybit ws_url empty")
	}

	topics := make([]string, 0, len(baseTokens))
	for _, coin := range baseTokens {
		coin = strings.TrimSpace(coin)
		if coin == "" {
			continue
		}
		topics = append(topics, "tickers."+f.converter.Coin2Symbol(coin))
	}
	if len(topics) == 0 {
		return nil, errors.New("no valid symbols for bybit topics")
	}

	out := make(chan port.Tick, 1024)
	go f.run(ctx, topics, out)
	return out, nil
}

func (f *MarkPriceFeed) run(ctx context.Context, topics []string, out chan<- port.Tick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second
	helper := &exchange.WSHelper{URL: f.wsURL}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, err := helper.DialWS(cctx)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		// subscribe
		sub := bybitSubReq{Op: "subscribe", Args: topics}
		if err := conn.WriteJSON(sub); err != nil {
			_ = conn.Close()
			log.Error().Str("feed", f.Name()).Err(err).Msg("subscribe failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected & subscribed")

		err = helper.ReadWithPing(ctx, conn, func(b []byte) {
			var msg bybitTickerMsg
			if e := json.Unmarshal(b, &msg); e != nil {
				log.Error().Str("feed", f.Name()).Err(e).Msg("json unmarshal failed")
				return
			}

			// ack
			if msg.Success != nil {
				if !*msg.Success {
					log.Error().Str("feed", f.Name()).Str("ret_msg", msg.RetMsg).Msg("subscribe not success")
				}
				return
			}

			for _, d := range msg.Data {
				sym := strings.ToUpper(strings.TrimSpace(d.Symbol))
				pxs := strings.TrimSpace(d.MarkPrice)
				if sym == "" || pxs == "" {
					continue
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
					return
				}
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
