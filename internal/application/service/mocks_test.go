package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// fakeAdapter 可编程的交易所适配器
type fakeAdapter struct {
	name      string
	rates     []model.FundingRate
	ratesErr  error
	positions []model.Position
	posErr    error
	ticker    float64
	tickerErr error
	orderErr  error
	levErr    error
	minSize   float64

	mu         sync.Mutex
	orders     []model.OrderRequest
	closeCalls []string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) GetFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

func (f *fakeAdapter) FetchTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	return &model.Ticker{Symbol: symbol, Last: f.ticker, Mark: f.ticker}, nil
}

func (f *fakeAdapter) CalculateSlippagePrice(ctx context.Context, symbol, side string, slippagePercent float64) (float64, error) {
	t, err := f.FetchTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if side == model.SideBuy {
		return t.Last * (1 + slippagePercent), nil
	}
	return t.Last * (1 - slippagePercent), nil
}

func (f *fakeAdapter) SetLeverage(ctx context.Context, symbol string, leverage float64) error {
	return f.levErr
}

func (f *fakeAdapter) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.mu.Lock()
	f.orders = append(f.orders, req)
	n := len(f.orders)
	f.mu.Unlock()
	return &model.Order{
		ID:       fmt.Sprintf("%s-%d", f.name, n),
		Exchange: f.name,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
	}, nil
}

func (f *fakeAdapter) GetPositions(ctx context.Context) ([]model.Position, error) {
	if f.posErr != nil {
		return nil, f.posErr
	}
	return f.positions, nil
}

func (f *fakeAdapter) CloseAllPositions(ctx context.Context, symbol string) ([]model.CloseResult, error) {
	f.mu.Lock()
	f.closeCalls = append(f.closeCalls, symbol)
	f.mu.Unlock()
	return []model.CloseResult{{Exchange: f.name, Symbol: symbol, Closed: true}}, nil
}

func (f *fakeAdapter) MinOrderSize(symbol string) float64 { return f.minSize }

func (f *fakeAdapter) Symbol(baseToken string) string {
	if baseToken == "" {
		return ""
	}
	return strings.ToUpper(baseToken) + "USDT"
}

func (f *fakeAdapter) BaseToken(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), "USDT")
}

var _ port.Adapter = (*fakeAdapter)(nil)

// fakeResolver 固定表解析器
type fakeResolver struct {
	adapters map[string]port.Adapter
	order    []string
}

func newFakeResolver(adapters ...*fakeAdapter) *fakeResolver {
	r := &fakeResolver{adapters: make(map[string]port.Adapter)}
	for _, ad := range adapters {
		r.adapters[ad.name] = ad
		r.order = append(r.order, ad.name)
	}
	return r
}

func (r *fakeResolver) Get(name string) (port.Adapter, error) {
	ad, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedExchange, name)
	}
	return ad, nil
}

func (r *fakeResolver) Enabled() []port.Adapter {
	out := make([]port.Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// memoryRepo 记录所有写入的仓储
type memoryRepo struct {
	mu            sync.Mutex
	opportunities []*model.ArbitrageOpportunity
	executions    []*model.ExecutionReport
	partials      []*model.PartialHedgeRecord
	snapshots     int
}

func (m *memoryRepo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opportunities = append(m.opportunities, opp)
	return nil
}

func (m *memoryRepo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, report)
	return nil
}

func (m *memoryRepo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partials = append(m.partials, rec)
	return nil
}

func (m *memoryRepo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partials, nil
}

func (m *memoryRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots++
	return nil
}

func (m *memoryRepo) Close() error { return nil }

var _ port.Repository = (*memoryRepo)(nil)

var errVenueDown = errors.New("venue unreachable")

func enabledOf(adapters ...*fakeAdapter) []port.Adapter {
	out := make([]port.Adapter, 0, len(adapters))
	for _, ad := range adapters {
		out = append(out, ad)
	}
	return out
}
