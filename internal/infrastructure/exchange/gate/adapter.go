package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/exchange"
)

// Adapter Gate USDT 永续适配器 (v4 API)
// Gate 合约以张为单位, quanto_multiplier 折算币本位数量
type Adapter struct {
	api       *APIClient
	converter exchange.SymbolConverter

	mu        sync.Mutex
	contracts map[string]contractInfo
	loadedAt  time.Time
}

var _ port.Adapter = (*Adapter)(nil)

// 合约元数据刷新间隔: 乘数与结算周期极少变化
const contractsTTL = time.Hour

// NewAdapter 创建 Gate 适配器
func NewAdapter(apiKey, apiSecret, baseURL string) *Adapter {
	return &Adapter{
		api:       NewAPIClient(apiKey, apiSecret, baseURL),
		converter: exchange.NewCommonSymbolConverter("_", "USDT"),
		contracts: make(map[string]contractInfo),
	}
}

func (a *Adapter) Name() string { return exchange.ExchangeGate }

func (a *Adapter) Symbol(baseToken string) string { return a.converter.Coin2Symbol(baseToken) }

func (a *Adapter) BaseToken(symbol string) string { return a.converter.Symbol2Coin(symbol) }

// MinOrderSize 最小下单量为一张合约对应的币本位数量
func (a *Adapter) MinOrderSize(symbol string) float64 {
	a.mu.Lock()
	info, ok := a.contracts[strings.ToUpper(symbol)]
	a.mu.Unlock()
	if ok && info.Multiplier > 0 {
		return info.Multiplier
	}
	return 0
}

type contractInfo struct {
	Multiplier      float64 // 一张合约的币本位数量
	FundingInterval int64   // 秒
	NextApply       int64   // 下次结算, unix 秒
}

type contractResp struct {
	Name             string `json:"name"`
	QuantoMultiplier string `json:"quanto_multiplier"`
	FundingInterval  int64  `json:"funding_interval"`
	FundingNextApply int64  `json:"funding_next_apply"`
}

// ensureContracts 加载合约元数据, 带 TTL 缓存
func (a *Adapter) ensureContracts(ctx context.Context) error {
	a.mu.Lock()
	fresh := time.Since(a.loadedAt) < contractsTTL && len(a.contracts) > 0
	a.mu.Unlock()
	if fresh {
		return nil
	}

	var entries []contractResp
	endpoint := a.api.publicURL("/api/v4/futures/usdt/contracts", "")
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &entries); err != nil {
		return fmt.Errorf("gate contracts: %w", err)
	}

	loaded := make(map[string]contractInfo, len(entries))
	for _, e := range entries {
		mult, _ := strconv.ParseFloat(e.QuantoMultiplier, 64)
		loaded[strings.ToUpper(e.Name)] = contractInfo{
			Multiplier:      mult,
			FundingInterval: e.FundingInterval,
			NextApply:       e.FundingNextApply,
		}
	}

	a.mu.Lock()
	a.contracts = loaded
	a.loadedAt = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *Adapter) contractInfoFor(symbol string) (contractInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.contracts[strings.ToUpper(symbol)]
	return info, ok
}

type tickerResp struct {
	Contract    string `json:"contract"`
	Last        string `json:"last"`
	MarkPrice   string `json:"mark_price"`
	IndexPrice  string `json:"index_price"`
	FundingRate string `json:"funding_rate"`
}

// GetFundingRates 拉取全量 USDT 永续资金费率
// tickers 不含下次结算时间, 从合约元数据补齐
func (a *Adapter) GetFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	if err := a.ensureContracts(ctx); err != nil {
		return nil, err
	}

	var entries []tickerResp
	endpoint := a.api.publicURL("/api/v4/futures/usdt/tickers", "")
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("gate tickers: %w", err)
	}

	rates := make([]model.FundingRate, 0, len(entries))
	for _, e := range entries {
		rate, err := strconv.ParseFloat(e.FundingRate, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(e.MarkPrice, 64)
		index, _ := strconv.ParseFloat(e.IndexPrice, 64)

		interval := "8h"
		var nextTs int64
		if info, ok := a.contractInfoFor(e.Contract); ok {
			nextTs = info.NextApply * 1000
			if info.FundingInterval > 0 {
				interval = fmt.Sprintf("%dh", info.FundingInterval/3600)
			}
		}

		rates = append(rates, model.FundingRate{
			Exchange:         a.Name(),
			Symbol:           strings.ToUpper(e.Contract),
			BaseToken:        a.BaseToken(e.Contract),
			MarkPrice:        mark,
			IndexPrice:       index,
			FundingRate:      rate,
			FundingTimestamp: nextTs,
			Interval:         interval,
		})
	}
	return rates, nil
}

// FetchTicker 获取单个合约的最新价与标记价
func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	var entries []tickerResp
	endpoint := a.api.publicURL("/api/v4/futures/usdt/tickers", "contract="+url.QueryEscape(symbol))
	if err := exchange.GetJSON(ctx, a.api.httpClient, endpoint, &entries); err != nil {
		return nil, fmt.Errorf("gate ticker %s: %w", symbol, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("gate ticker %s: %w", symbol, model.ErrSymbolResolution)
	}

	e := entries[0]
	last, _ := strconv.ParseFloat(e.Last, 64)
	mark, _ := strconv.ParseFloat(e.MarkPrice, 64)
	index, _ := strconv.ParseFloat(e.IndexPrice, 64)
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
		return 0, fmt.Errorf("gate %s: no price available", symbol)
	}
	return exchange.SlippagePrice(last, side, slippagePercent), nil
}

// SetLeverage 设置全仓杠杆
// Gate: leverage=0 表示全仓, 实际倍数用 cross_leverage_limit 传递
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	path := "/api/v4/futures/usdt/positions/" + symbol + "/leverage"
	query := url.Values{}
	query.Set("leverage", "0")
	query.Set("cross_leverage_limit", strconv.FormatFloat(leverage, 'f', -1, 64))

	if _, err := a.api.signedRequest(ctx, http.MethodPost, path, query.Encode(), nil); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	return nil
}

type orderResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// CreateOrder 提交滑点保护的 IOC 限价单
// size 为带方向的张数: 正数做多, 负数做空
func (a *Adapter) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if err := a.ensureContracts(ctx); err != nil {
		return nil, err
	}
	info, ok := a.contractInfoFor(req.Symbol)
	if !ok || info.Multiplier <= 0 {
		return nil, fmt.Errorf("gate %s: %w", req.Symbol, model.ErrSymbolResolution)
	}

	size := int64(math.Floor(req.Quantity / info.Multiplier))
	if size < 1 {
		return nil, fmt.Errorf("%w: %f below one contract (%f)", model.ErrInsufficientSize, req.Quantity, info.Multiplier)
	}
	if strings.EqualFold(req.Side, model.SideSell) {
		size = -size
	}

	payload := map[string]interface{}{
		"contract": req.Symbol,
		"size":     size,
		"price":    fmt.Sprintf("%.8g", req.Price),
		"tif":      "ioc",
	}
	if req.ReduceOnly {
		payload["reduce_only"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	respBody, err := a.api.signedRequest(ctx, http.MethodPost, "/api/v4/futures/usdt/orders", "", body)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var resp orderResp
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	if resp.ID == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderRejected, string(respBody))
	}

	log.Info().
		Str("exchange", a.Name()).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Float64("quantity", req.Quantity).
		Float64("price", req.Price).
		Int64("orderID", resp.ID).
		Str("status", resp.Status).
		Msg("order placed")

	return &model.Order{
		ID:         strconv.FormatInt(resp.ID, 10),
		Exchange:   a.Name(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		ReduceOnly: req.ReduceOnly,
	}, nil
}

type positionResp struct {
	Contract      string `json:"contract"`
	Size          int64  `json:"size"`
	EntryPrice    string `json:"entry_price"`
	UnrealisedPnl string `json:"unrealised_pnl"`
	Leverage      string `json:"leverage"`
}

// GetPositions 列出全部非零持仓
func (a *Adapter) GetPositions(ctx context.Context) ([]model.Position, error) {
	if err := a.ensureContracts(ctx); err != nil {
		return nil, err
	}

	body, err := a.api.signedRequest(ctx, http.MethodGet, "/api/v4/futures/usdt/positions", "", nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var entries []positionResp
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}

	positions := make([]model.Position, 0, len(entries))
	for _, e := range entries {
		if e.Size == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(e.EntryPrice, 64)
		pnl, _ := strconv.ParseFloat(e.UnrealisedPnl, 64)

		side := model.SideLong
		size := e.Size
		if size < 0 {
			side = model.SideShort
			size = -size
		}

		// 张数折算为币本位数量
		contracts := float64(size)
		if info, ok := a.contractInfoFor(e.Contract); ok && info.Multiplier > 0 {
			contracts = float64(size) * info.Multiplier
		}

		positions = append(positions, model.Position{
			Exchange:      a.Name(),
			Symbol:        strings.ToUpper(e.Contract),
			BaseToken:     a.BaseToken(e.Contract),
			Side:          side,
			Contracts:     contracts,
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
