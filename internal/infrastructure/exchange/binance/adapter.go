package binance

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

// 最小下单量（币本位），无记录的合约使用 defaultMinQty
var minQty = map[string]float64{
	"BTCUSDT": 0.001,
	"ETHUSDT": 0.01,
}

const defaultMinQty = 0.001

// Adapter Binance USDT 永续适配器
type Adapter struct {
	api       *APIClient
	converter exchange.SymbolConverter
}

var _ port.Adapter = (*Adapter)(nil)

// NewAdapter 创建 Binance 适配器
func NewAdapter(apiKey, apiSecret, baseURL string) *Adapter {
	return &Adapter{
		api:       NewAPIClient(apiKey, apiSecret, baseURL),
		converter: exchange.NewCommonSymbolConverter("", "USDT"),
	}
}

func (a *Adapter) Name() string { return exchange.ExchangeBinance }

// Symbol 币种 -> Binance 交易对
func (a *Adapter) Symbol(baseToken string) string { return a.converter.Coin2Symbol(baseToken) }

// BaseToken Binance 交易对 -> 币种
func (a *Adapter) BaseToken(symbol string) string { return a.converter.Symbol2Coin(symbol) }

// MinOrderSize 该合约的最小下单量
func (a *Adapter) MinOrderSize(symbol string) float64 {
	if q, ok := minQty[strings.ToUpper(symbol)]; ok {
		return q
	}
	return defaultMinQty
}

// premiumIndexResp /fapi/v1/premiumIndex 响应条目
type premiumIndexResp struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
	Time            int64  `json:"time"`
}

// GetFundingRates 拉取全量 USDT 永续资金费率
func (a *Adapter) GetFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	var entries []premiumIndexResp
	endpoint := a.api.publicURL("/fapi/v1/premiumIndex", "")
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("binance premium index: %w", err)
	}

	rates := make([]model.FundingRate, 0, len(entries))
	for _, e := range entries {
		// 只保留 USDT 本位合约
		if !strings.HasSuffix(e.Symbol, "USDT") {
			continue
		}
		rate, err := strconv.ParseFloat(e.LastFundingRate, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(e.MarkPrice, 64)
		index, _ := strconv.ParseFloat(e.IndexPrice, 64)

		rates = append(rates, model.FundingRate{
			Exchange:         a.Name(),
			Symbol:           e.Symbol,
			BaseToken:        a.BaseToken(e.Symbol),
			MarkPrice:        mark,
			IndexPrice:       index,
			FundingRate:      rate,
			FundingTimestamp: e.NextFundingTime,
			Interval:         "8h",
		})
	}
	return rates, nil
}

// FetchTicker 获取单个合约的最新价与标记价
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	var px struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	endpoint := a.api.publicURL("/fapi/v1/ticker/price", "symbol="+url.QueryEscape(symbol))
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &px); err != nil {
		return nil, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	last, err := strconv.ParseFloat(px.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("binance ticker %s: bad price %q", symbol, px.Price)
	}

	var idx premiumIndexResp
	endpoint = a.api.publicURL("/fapi/v1/premiumIndex", "symbol="+url.QueryEscape(symbol))
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &idx); err != nil {
		return nil, fmt.Errorf("binance premium index %s: %w", symbol, err)
	}
	mark, _ := strconv.ParseFloat(idx.MarkPrice, 64)
	index, _ := strconv.ParseFloat(idx.IndexPrice, 64)

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
		return 0, fmt.Errorf("binance %s: no price available", symbol)
	}
	return exchange.SlippagePrice(last, side, slippagePercent), nil
}

// SetLeverage 设置全仓模式与杠杆
// 保证金模式已是全仓时 Binance 返回 -4046, 视为成功
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("marginType", "CROSSED")
	if _, err := a.api.signedRequest(ctx, http.MethodPost, "/fapi/v1/marginType", params); err != nil {
		if !strings.Contains(err.Error(), "-4046") {
			return fmt.Errorf("set margin type: %w", err)
		}
	}

	params = url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(int(leverage)))
	if _, err := a.api.signedRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	return nil
}

// orderResp /fapi/v1/order 响应
type orderResp struct {
	OrderID int64  `json:"orderId"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Side    string `json:"side"`
}

// CreateOrder 提交滑点保护的 IOC 限价单
func (a *Adapter) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(req.Side))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "IOC")
	params.Set("quantity", fmt.Sprintf("%.8g", req.Quantity))
	params.Set("price", fmt.Sprintf("%.8g", req.Price))
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := a.api.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var resp orderResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	if resp.OrderID == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderRejected, string(body))
	}

	log.Info().
		Str("exchange", a.Name()).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Int64("orderID", resp.OrderID).
		Str("status", resp.Status).
		Msg("order placed")

	return &model.Order{
		ID:         strconv.FormatInt(resp.OrderID, 10),
		Exchange:   a.Name(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		ReduceOnly: req.ReduceOnly,
	}, nil
}

// positionRiskResp /fapi/v2/positionRisk 响应条目
type positionRiskResp struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
}

// GetPositions 列出全部非零持仓
func (a *Adapter) GetPositions(ctx context.Context) ([]model.Position, error) {
	body, err := a.api.signedRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}

	var entries []positionRiskResp
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse position risk: %w", err)
	}

	positions := make([]model.Position, 0, len(entries))
	for _, e := range entries {
		amt, err := strconv.ParseFloat(e.PositionAmt, 64)
		if err != nil || amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(e.EntryPrice, 64)
		pnl, _ := strconv.ParseFloat(e.UnRealizedProfit, 64)

		side := model.SideLong
		if amt < 0 {
			side = model.SideShort
			amt = -amt
		}
		positions = append(positions, model.Position{
			Exchange:      a.Name(),
			Symbol:        e.Symbol,
			BaseToken:     a.BaseToken(e.Symbol),
			Side:          side,
			Contracts:     amt,
			EntryPrice:    entry,
			UnrealizedPnl: pnl,
		})
	}
	return positions, nil
}

// CloseAllPositions 平掉该合约的所有持仓
// reduce-only 反向市价单，逐条失败记录并继续
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

// 平仓时的默认滑点
const defaultCloseSlippage = 0.005
