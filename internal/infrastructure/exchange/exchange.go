package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Exchange name constants
const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
	ExchangeGate    = "gate"
)

// AdapterTimeout 单次 REST 调用的超时上限
const AdapterTimeout = 3 * time.Second

// Supported 判断交易所名称是否在固定枚举内
func Supported(name string) bool {
	switch name {
	case ExchangeBinance, ExchangeBybit, ExchangeGate:
		return true
	}
	return false
}

// NewHTTPClient 创建带统一超时的 HTTP 客户端
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: AdapterTimeout}
}

// GetJSON 发送公共 GET 请求并解析 JSON 响应
func GetJSON(ctx context.Context, client *http.Client, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

// SlippagePrice 基于最新价计算滑点边界价
// 买单接受比现价高 slippagePercent，卖单接受低 slippagePercent
func SlippagePrice(last float64, side string, slippagePercent float64) float64 {
	if strings.EqualFold(side, "buy") {
		return last * (1 + slippagePercent)
	}
	return last * (1 - slippagePercent)
}

// BuildQueryURL builds a URL with query parameters
func BuildQueryURL(base, path, query string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("base url is empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = path
	u.RawQuery = query
	return u.String(), nil
}

// WSHelper provides common WebSocket functionality
type WSHelper struct {
	URL string
}

// DialWS creates a WebSocket connection with timeout
func (w *WSHelper) DialWS(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, w.URL, nil)
	return conn, err
}

// ReadWithPing reads WebSocket messages with periodic pings
func (w *WSHelper) ReadWithPing(ctx context.Context, conn *websocket.Conn, onMessage func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			onMessage(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// 先断连接让 ReadMessage 解除阻塞，等读协程彻底退出
			// 再返回；调用方返回后关闭下游通道才是安全的
			_ = conn.Close()
			<-errCh
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

// MinDuration returns the minimum of two durations
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
