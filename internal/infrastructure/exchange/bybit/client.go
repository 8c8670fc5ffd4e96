package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"fundarb/internal/infrastructure/exchange"
)

// DefaultBaseURL Bybit V5 REST 入口
const DefaultBaseURL = "https://api.bybit.com"

// Credentials 包含 API 凭证和签名方法
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

// Sign 生成 HMAC-SHA256 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
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
