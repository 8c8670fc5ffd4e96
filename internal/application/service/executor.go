package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// HedgeExecutor 双腿对冲执行引擎
// 两腿必须并发下发：先多后空的串行实现会拉大两腿成交的时间窗，
// 放大价格偏移风险，属于正确性问题而不止是性能问题
type HedgeExecutor struct {
	resolver port.AdapterResolver
	repo     port.Repository
}

func NewHedgeExecutor(resolver port.AdapterResolver, repo port.Repository) *HedgeExecutor {
	return &HedgeExecutor{resolver: resolver, repo: repo}
}

// ExecuteHedge 执行一笔对冲：低费率所做多、高费率所做空
// 状态机：Requested -> LegsDispatched -> {BothFilled|PartialFilled|BothFailed} -> Reported
func (e *HedgeExecutor) ExecuteHedge(ctx context.Context, intent model.TradeIntent) (*model.ExecutionReport, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	longAd, err := e.resolver.Get(intent.LongExchange)
	if err != nil {
		return nil, err
	}
	shortAd, err := e.resolver.Get(intent.ShortExchange)
	if err != nil {
		return nil, err
	}

	// 符号解析失败对整笔操作是致命的，在下发任何一腿之前拦截
	longSymbol := longAd.Symbol(intent.BaseToken)
	shortSymbol := shortAd.Symbol(intent.BaseToken)
	if longSymbol == "" || shortSymbol == "" {
		return nil, fmt.Errorf("%w: %s on %s/%s",
			model.ErrSymbolResolution, intent.BaseToken, intent.LongExchange, intent.ShortExchange)
	}

	log.Info().
		Str("base_token", intent.BaseToken).
		Str("long", intent.LongExchange).
		Str("short", intent.ShortExchange).
		Float64("position_size", intent.PositionSize).
		Float64("leverage", intent.Leverage).
		Msg("dispatching hedge legs")

	// 两腿同时下发，之后才等待任何一腿
	longCh := make(chan model.LegResult, 1)
	shortCh := make(chan model.LegResult, 1)
	go func() {
		longCh <- e.openLeg(ctx, longAd, longSymbol, model.SideBuy, intent)
	}()
	go func() {
		shortCh <- e.openLeg(ctx, shortAd, shortSymbol, model.SideSell, intent)
	}()

	report := &model.ExecutionReport{
		BaseToken: intent.BaseToken,
		LongLeg:   <-longCh,
		ShortLeg:  <-shortCh,
		Quantity:  intent.PositionSize / intent.Leverage,
		Timestamp: time.Now().UnixMilli(),
	}

	longOK, shortOK := report.LongLeg.Filled(), report.ShortLeg.Filled()
	switch {
	case longOK && shortOK:
		report.Status = model.StatusBothFilled
	case longOK || shortOK:
		report.Status = model.StatusPartialFilled
	default:
		report.Status = model.StatusBothFailed
	}

	if err := e.repo.SaveExecution(ctx, report); err != nil {
		log.Error().Err(err).Str("base_token", intent.BaseToken).Msg("save execution report failed")
	}

	switch report.Status {
	case model.StatusBothFilled:
		log.Info().Str("base_token", intent.BaseToken).Float64("quantity", report.Quantity).
			Msg("hedge filled on both legs")
		return report, nil

	case model.StatusPartialFilled:
		// 不自动回滚，不重试：持久化记录 + 显式错误类型，留给操作者
		rec := partialHedgeRecord(report)
		if err := e.repo.SavePartialHedge(ctx, rec); err != nil {
			log.Error().Err(err).Str("base_token", intent.BaseToken).Msg("save partial hedge record failed")
		}
		log.Error().
			Str("base_token", intent.BaseToken).
			Str("filled_exchange", rec.FilledExchange).
			Str("failed_exchange", rec.FailedExchange).
			Str("reason", rec.FailedReason).
			Msg("PARTIAL HEDGE: one leg open without cover, manual correction required")
		return report, &model.PartialHedgeError{Report: report}

	default:
		return report, fmt.Errorf("both legs failed: long(%s): %s; short(%s): %s",
			report.LongLeg.Exchange, report.LongLeg.Err,
			report.ShortLeg.Exchange, report.ShortLeg.Err)
	}
}

// openLeg 单腿执行：设杠杆 -> 算滑点边界价 -> 最小量校验 -> IOC 市价单
// 腿内任何错误都截获为结果，不阻止另一腿
func (e *HedgeExecutor) openLeg(ctx context.Context, ad port.Adapter, symbol, side string, intent model.TradeIntent) model.LegResult {
	leg := model.LegResult{Exchange: ad.Name(), Symbol: symbol, Side: side}

	if err := ad.SetLeverage(ctx, symbol, intent.Leverage); err != nil {
		leg.Err = fmt.Sprintf("set leverage: %v", err)
		return leg
	}

	price, err := ad.CalculateSlippagePrice(ctx, symbol, side, intent.SlippagePercent)
	if err != nil {
		leg.Err = fmt.Sprintf("slippage price: %v", err)
		return leg
	}
	leg.Price = price

	amount := intent.PositionSize / price
	if min := ad.MinOrderSize(symbol); amount < min {
		leg.Err = fmt.Sprintf("%v: %g < %g %s", model.ErrInsufficientSize, amount, min, symbol)
		return leg
	}

	order, err := ad.CreateOrder(ctx, model.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Quantity: amount,
		Price:    price,
	})
	if err != nil {
		leg.Err = fmt.Sprintf("create order: %v", err)
		return leg
	}
	leg.Order = order
	return leg
}

func partialHedgeRecord(report *model.ExecutionReport) *model.PartialHedgeRecord {
	filled, failed := report.LongLeg, report.ShortLeg
	if !filled.Filled() {
		filled, failed = report.ShortLeg, report.LongLeg
	}
	return &model.PartialHedgeRecord{
		ID:             fmt.Sprintf("%s_%s_%d", report.BaseToken, filled.Exchange, report.Timestamp),
		BaseToken:      report.BaseToken,
		FilledExchange: filled.Exchange,
		FilledSide:     filled.Side,
		FilledOrderID:  filled.Order.ID,
		FailedExchange: failed.Exchange,
		FailedReason:   failed.Err,
		CreatedAt:      report.Timestamp,
	}
}

// CloseHedge 平掉一个币种的对冲：持有该合约仓位的每个交易所
// 并发提交 reduce-only 全量平仓
func (e *HedgeExecutor) CloseHedge(ctx context.Context, baseToken string) ([]model.CloseResult, error) {
	if baseToken == "" {
		return nil, fmt.Errorf("close hedge: base token is empty")
	}

	adapters := e.resolver.Enabled()
	type target struct {
		ad     port.Adapter
		symbol string
	}
	targets := make([]target, 0, len(adapters))

	for _, ad := range adapters {
		symbol := ad.Symbol(baseToken)
		if symbol == "" {
			continue
		}
		positions, err := ad.GetPositions(ctx)
		if err != nil {
			log.Warn().Str("exchange", ad.Name()).Err(err).Msg("position fetch failed during close")
			continue
		}
		for _, p := range positions {
			if p.Symbol == symbol && p.Contracts > 0 {
				targets = append(targets, target{ad: ad, symbol: symbol})
				break
			}
		}
	}

	results := make([][]model.CloseResult, len(targets))
	var wg sync.WaitGroup
	for i, tg := range targets {
		wg.Add(1)
		go func(i int, tg target) {
			defer wg.Done()
			res, err := tg.ad.CloseAllPositions(ctx, tg.symbol)
			if err != nil {
				log.Error().Str("exchange", tg.ad.Name()).Str("symbol", tg.symbol).Err(err).
					Msg("close positions failed")
				results[i] = []model.CloseResult{{
					Exchange: tg.ad.Name(), Symbol: tg.symbol, Err: err.Error(),
				}}
				return
			}
			results[i] = res
		}(i, tg)
	}
	wg.Wait()

	flat := make([]model.CloseResult, 0)
	for _, res := range results {
		flat = append(flat, res...)
	}
	return flat, nil
}

// CloseEverything 清仓：遍历每个交易所的每条持仓，不看对冲分组
func (e *HedgeExecutor) CloseEverything(ctx context.Context) []model.CloseResult {
	adapters := e.resolver.Enabled()
	results := make([][]model.CloseResult, len(adapters))

	var wg sync.WaitGroup
	for i, ad := range adapters {
		wg.Add(1)
		go func(i int, ad port.Adapter) {
			defer wg.Done()
			positions, err := ad.GetPositions(ctx)
			if err != nil {
				log.Warn().Str("exchange", ad.Name()).Err(err).Msg("position fetch failed during close-all")
				return
			}

			seen := make(map[string]struct{})
			for _, p := range positions {
				if p.Contracts <= 0 {
					continue
				}
				if _, ok := seen[p.Symbol]; ok {
					continue // long 与 short 两行同一合约只平一次
				}
				seen[p.Symbol] = struct{}{}

				res, err := ad.CloseAllPositions(ctx, p.Symbol)
				if err != nil {
					log.Error().Str("exchange", ad.Name()).Str("symbol", p.Symbol).Err(err).
						Msg("close positions failed")
					results[i] = append(results[i], model.CloseResult{
						Exchange: ad.Name(), Symbol: p.Symbol, Err: err.Error(),
					})
					continue
				}
				results[i] = append(results[i], res...)
			}
		}(i, ad)
	}
	wg.Wait()

	flat := make([]model.CloseResult, 0)
	for _, res := range results {
		flat = append(flat, res...)
	}
	return flat
}
