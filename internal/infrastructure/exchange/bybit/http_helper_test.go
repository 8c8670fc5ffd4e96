package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestSignedQueryRequestHeaders(t *testing.T) {
	var got http.Header
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"retCode":0}`))
	}))
	defer srv.Close()

	api := NewAPIClient("test-key", "test-secret", srv.URL)
	params := url.Values{}
	params.Set("category", "linear")

	if _, err := api.signedQueryRequest(context.Background(), http.MethodGet, "/v5/position/list", params); err != nil {
		t.Fatalf("signed request failed: %v", err)
	}

	if got.Get("X-BAPI-API-KEY") != "test-key" {
		t.Errorf("api key header: %q", got.Get("X-BAPI-API-KEY"))
	}
	if got.Get("X-BAPI-RECV-WINDOW") != recvWindow {
		t.Errorf("recv window header: %q", got.Get("X-BAPI-RECV-WINDOW"))
	}

	timestamp := got.Get("X-BAPI-TIMESTAMP")
	if timestamp == "" {
		t.Fatal("timestamp header missing")
	}

	// 签名串 = timestamp + apiKey + recvWindow + query
	creds := NewCredentials("test-key", "test-secret")
	want := creds.Sign(timestamp + "test-key" + recvWindow + gotQuery)
	if got.Get("X-BAPI-SIGN") != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", got.Get("X-BAPI-SIGN"), want)
	}
}

func TestSignedRequestNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"retCode":10004}`, http.StatusForbidden)
	}))
	defer srv.Close()

	api := NewAPIClient("k", "s", srv.URL)
	if _, err := api.signedJSONRequest(context.Background(), http.MethodPost, "/v5/order/create", map[string]string{}); err == nil {
		t.Fatal("expected error for http 403")
	}
}
