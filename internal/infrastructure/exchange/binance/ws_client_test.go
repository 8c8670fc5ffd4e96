package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBuildCombinedURL(t *testing.T) {
	got, err := buildCombinedURL("wss://fstream.binance.com", []string{"BTCUSDT", "ETHUSDT"})
	if err != nil {
		t.Fatalf("buildCombinedURL failed: %v", err)
	}
	want := "wss://fstream.binance.com/stream?streams=btcusdt@markPrice@1s/ethusdt@markPrice@1s"
	if got != want {
		t.Errorf("url mismatch:\n got %s\nwant %s", got, want)
	}

	if _, err := buildCombinedURL("", []string{"BTCUSDT"}); err == nil {
		t.Error("expected error for empty base url")
	}
	if _, err := buildCombinedURL("wss://fstream.binance.com", nil); err == nil {
		t.Error("expected error for empty symbol list")
	}
}

// 取消后通道必须正常关闭：哪怕缓冲已满、没有任何下游在消费，
// 推送协程也不能撞上已关闭的通道
func TestMarkPriceFeedClosesCleanlyOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	msg := []byte(`{"stream":"btcusdt@markPrice@1s","data":{"s":"BTCUSDT","p":"65000.10","E":1700000000000}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// 足以灌满 1024 的 tick 缓冲
		for i := 0; i < 3000; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewMarkPriceFeed("ws" + strings.TrimPrefix(srv.URL, "http"))
	ch, err := feed.Subscribe(ctx, []string{"BTC"})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// 等缓冲填满、推送协程卡在写入上
	time.Sleep(300 * time.Millisecond)
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case tick, ok := <-ch:
			if !ok {
				return // 正常关闭，没有恐慌
			}
			if tick.BaseToken != "BTC" {
				t.Fatalf("unexpected base token: %s", tick.BaseToken)
			}
		case <-deadline:
			t.Fatal("tick channel not closed after cancel")
		}
	}
}
