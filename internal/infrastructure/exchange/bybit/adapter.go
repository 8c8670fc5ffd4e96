package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"
)

// retCodeLeverageNotModified 杠杆无变化, V5 API 视为失败但语义上是成功
const retCodeLeverageNotModified = 110043

var minQty = map[string]float64{
	"BTCUSDT": 0.001,
	"ETHUSDT": 0.01,
}

const defaultMinQty = 0.001

// Adapter Bybit USDT 永续适配器 (V5 API)
type Adapter struct {
	api       *APIClient
	converter exchange.SymbolConverter
}

var _ port.Adapter = (*Adapter)(nil)

// NewAdapter 创建 Bybit 适配器
func NewAdapter(apiKey, apiSecret, baseURL string) *Adapter {
	return &Adapter{
		api:       NewAPIClient(apiKey, apiSecret, baseURL),
		converter: exchange.NewCommonSymbolConverter("", "USDT"),
	}
}

func (a *Adapter) Name() string { return exchange.ExchangeBybit }

func (a *Adapter) Symbol(baseToken string) string { return a.converter.Coin2Symbol(baseToken) }

func (a *Adapter) BaseToken(symbol string) string { return a.converter.Symbol2Coin(symbol) }

func (a *Adapter) MinOrderSize(symbol string) float64 {
	if q, ok := minQty[strings.ToUpper(symbol)]; ok {
		return q
	}
	return defaultMinQty
}

// apiResponse V5 统一响应封装
type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type tickerItem struct {
	Symbol          string `json:"symbol"`
	LastPrice       string `json:"lastPrice"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

type tickerResult struct {
	Category string       `json:"category"`
	List     []tickerItem `json:"list"`
}

func (a *Adapter) fetchTickers(ctx context.Context, symbol string) ([]tickerItem, error) {
	query := "category=linear"
	if symbol != "" {
		query += "&symbol=" + url.QueryEscape(symbol)
	}
	endpoint := strings.TrimRight(a.api.baseURL, "/") + "/v5/market/tickers?" + query

	var envelope apiResponse
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &envelope); err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	if envelope.RetCode != 0 {
		return nil, fmt.Errorf("bybit tickers: [%d] %s", envelope.RetCode, envelope.RetMsg)
	}

	var result tickerResult
	if err := json.Unmarshal(envelope.Result, &result); err != nil {
		return nil, fmt.Errorf("bybit tickers: parse result: %w", err)
	}
	return result.List, nil
}

// GetFundingRates 拉取全量 linear 合约资金费率
func (a *Adapter) GetFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	items, err := a.fetchTickers(ctx, "")
	if err != nil {
		return nil, err
	}

	rates := make([]model.FundingRate, 0, len(items))
	for _, it := range items {
		if !strings.HasSuffix(it.Symbol, "USDT") {
			continue
		}
		rate, err := strconv.ParseFloat(it.FundingRate, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(it.MarkPrice, 64)
		index, _ := strconv.ParseFloat(it.IndexPrice, 64)
		nextTs, _ := strconv.ParseInt(it.NextFundingTime, 10, 64)

		rates = append(rates, model.FundingRate{
			Exchange:         a.Name(),
			Symbol:           it.Symbol,
			BaseToken:        a.BaseToken(it.Symbol),
			MarkPrice:        mark,
			IndexPrice:       index,
			FundingRate:      rate,
			FundingTimestamp: nextTs,
			Interval:         "8h",
		})
	}
	return rates, nil
}

// FetchTicker 获取单个合约的最新价与标记价
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	items, err := a.fetchTickers(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("bybit ticker %s: %w", symbol, model.ErrSymbolResolution)
	}

	it := items[0]
	last, _ := strconv.ParseFloat(it.LastPrice, 64)
	mark, _ := strconv.ParseFloat(it.MarkPrice, 64)
	index, _ := strconv.ParseFloat(it.IndexPrice, 64)
	return &model.Ticker{Symbol: symbol, Last: last, Mark: mark, Index: index}, nil
}

// CalculateSlippagePrice 基于最新价计算滑点边界价
func (a *Adapter) CalculateSlippagePrice(ctx context.Context, symbol, side string, slippagePercent float64) (float64, error) {
	ticker, err := a.FetchTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	last := ticker.Last
	if last == 0 {
		last = ticker.Mark
	}
	if last == 0 {
		return 0, fmt.Errorf("bybit %s: no price available", symbol)
	}
	return exchange.SlippagePrice(last, side, slippagePercent), nil
}

// SetLeverage 设置双向杠杆, 110043 (无变化) 视为成功
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	lev := strconv.FormatFloat(leverage, 'f', -1, 64)
	payload := map[string]interface{}{
		"category":     "linear",
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	body, err := a.api.signedJSONRequest(ctx, http.MethodPost, "/v5/position/set-leverage", payload)
	if err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse set leverage response: %w", err)
	}
	if resp.RetCode != 0 && resp.RetCode != retCodeLeverageNotModified {
		return fmt.Errorf("set leverage: [%d] %s", resp.RetCode, resp.RetMsg)
	}
	return nil
}

// CreateOrder 提交滑点保护的 IOC 限价单
func (a *Adapter) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	side := "Buy"
	if strings.EqualFold(req.Side, model.SideSell) {
		side = "Sell"
	}
	payload := map[string]interface{}{
		"category":    "linear",
		"symbol":      req.Symbol,
		"side":        side,
		"orderType":   "Limit",
		"qty":         fmt.Sprintf("%.8g", req.Quantity),
		"price":       fmt.Sprintf("%.8g", req.Price),
		"timeInForce": "IOC",
	}
	if req.ReduceOnly {
		payload["reduceOnly"] = true
	}

	body, err := a.api.signedJSONRequest(ctx, http.MethodPost, "/v5/order/create", payload)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("%w: [%d] %s", model.ErrOrderRejected, resp.RetCode, resp.RetMsg)
	}

	var result struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse order result: %w", err)
	}

	log.Info().
		Str("exchange", a.Name()).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Str("orderID", result.OrderID).
		Msg("order placed")

	return &model.Order{
		ID:         result.OrderID,
		Exchange:   a.Name(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		ReduceOnly: req.ReduceOnly,
	}, nil
}

type positionItem struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"` // Buy | Sell
	Size          string `json:"size"`
	AvgPrice      string `json:"avgPrice"`
	UnrealisedPnl string `json:"unrealisedPnl"`
}

// GetPositions 列出全部非零持仓
func (a *Adapter) GetPositions(ctx context.Context) ([]model.Position, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("settleCoin", "USDT")

	body, err := a.api.signedQueryRequest(ctx, http.MethodGet, "/v5/position/list", params)
	if err != nil {
		return nil, fmt.Errorf("position list: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse position list: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("position list: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	var result struct {
		List []positionItem `json:"list"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse position result: %w", err)
	}

	positions := make([]model.Position, 0, len(result.List))
	for _, it := range result.List {
		size, err := strconv.ParseFloat(it.Size, 64)
		if err != nil || size == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(it.AvgPrice, 64)
		pnl, _ := strconv.ParseFloat(it.UnrealisedPnl, 64)

		side := model.SideLong
		if strings.EqualFold(it.Side, "Sell") {
			side = model.SideShort
		}
		positions = append(positions, model.Position{
			Exchange:      a.Name(),
			Symbol:        it.Symbol,
			BaseToken:     a.BaseToken(it.Symbol),
			Side:          side,
			Contracts:     size,
			EntryPrice:    entry,
			UnrealizedPnl: pnl,
		})
	}
	return positions, nil
}

// CloseAllPositions 平掉该合约的所有持仓
func (a *Adapter) CloseAllPositions(ctx context.Context, symbol string) ([]model.CloseResult, error) {
	positions, err := a.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.CloseResult
	for _, pos := range positions {
		if pos.Symbol != symbol {
			continue
		}
		result := model.CloseResult{Exchange: a.Name(), Symbol: pos.Symbol}

		side := model.CloseSide(pos.Side)
		price, err := a.CalculateSlippagePrice(ctx, pos.Symbol, side, defaultCloseSlippage)
		if err == nil {
			_, err = a.CreateOrder(ctx, model.OrderRequest{
				Symbol:     pos.Symbol,
				Side:       side,
				Quantity:   pos.Contracts,
				Price:      price,
				ReduceOnly: true,
			})
		}
		if err != nil {
			result.Err = err.Error()
			log.Error().Str("exchange", a.Name()).Str("symbol", pos.Symbol).Err(err).Msg("close position failed")
		} else {
			result.Closed = true
		}
		results = append(results, result)
	}
	return results, nil
}

const defaultCloseSlippage = 0.005
