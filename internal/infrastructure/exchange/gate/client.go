package gate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fundarb/internal/infrastructure/exchange"
)

// DefaultBaseURL Gate v4 REST 入口
const DefaultBaseURL = "https://api.gateio.ws"

// Credentials 包含 API 凭证和签名方法
// Gate v4 使用 HMAC-SHA512 对整个请求串签名
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// Sign 生成 HMAC-SHA512 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha512.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

// APIClient 复用 HTTP 连接与凭证的底层客户端
type APIClient struct {
	credentials *Credentials
	httpClient  *http.Client
	baseURL     string
}

// NewAPIClient 创建底层客户端
func NewAPIClient(apiKey, apiSecret, baseURL string) *APIClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &APIClient{
		credentials: NewCredentials(apiKey, apiSecret),
		httpClient:  exchange.NewHTTPClient(),
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// signedRequest 发送签名请求
// 签名串: method\npath\nquery\nSHA512(body)\ntimestamp
func (c *APIClient) signedRequest(ctx context.Context, method, path, query string, body []byte) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	bodyHash := sha512.Sum512(body)
	signStr := strings.Join([]string{
		method,
		path,
		query,
		hex.EncodeToString(bodyHash[:]),
		timestamp,
	}, "\n")
	signature := c.credentials.Sign(signStr)

	endpoint := c.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("KEY", c.credentials.APIKey())
	req.Header.Set("Timestamp", timestamp)
	req.Header.Set("SIGN", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gate http %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// publicURL 拼接公开接口地址
func (c *APIClient) publicURL(path, query string) string {
	endpoint := c.baseURL + path
	if strings.TrimSpace(query) != "" {
		endpoint += "?" + query
	}
	return endpoint
}
