package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// recvWindow V5 签名请求的接收窗口（毫秒）
const recvWindow = "5000"

// signedJSONRequest 发送带 JSON payload 的签名请求
func (c *APIClient) signedJSONRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, ""), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doSignedRequest(req, string(body))
}

// signedQueryRequest 发送带 query 的签名请求
func (c *APIClient) signedQueryRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	var query string
	if params != nil {
		query = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), nil)
	if err != nil {
		return nil, err
	}

	return c.doSignedRequest(req, query)
}

func (c *APIClient) endpoint(path, query string) string {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if query != "" {
		endpoint += "?" + query
	}
	return endpoint
}

// signHeaders V5 签名串: timestamp + apiKey + recvWindow + payload
// payload 对 JSON 请求是原始 body，对 query 请求是编码后的 query
func (c *APIClient) signHeaders(req *http.Request, payload string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature := c.credentials.Sign(timestamp + c.credentials.APIKey() + recvWindow + payload)

	req.Header.Set("X-BAPI-API-KEY", c.credentials.APIKey())
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", signature)
}

func (c *APIClient) doSignedRequest(req *http.Request, payload string) ([]byte, error) {
	c.signHeaders(req, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bybit http %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
