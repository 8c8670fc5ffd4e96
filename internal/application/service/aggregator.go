package service

import (
	"context"
	"math"
	"sync"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// RateAggregator 资金费率聚合器：并发拉取所有启用交易所，
// 单所失败只记日志不中断，剩余数据照常合并
type RateAggregator struct {
	adapters []port.Adapter
}

func NewRateAggregator(adapters []port.Adapter) *RateAggregator {
	return &RateAggregator{adapters: adapters}
}

type fetchOutcome struct {
	exchange string
	rates    []model.FundingRate
	err      error
}

// Aggregate 等所有交易所的调用都结束后一次性合并，
// 合并顺序 = 适配器枚举顺序（排序并列时的稳定依据）
func (a *RateAggregator) Aggregate(ctx context.Context) []model.FundingRate {
	outcomes := make([]fetchOutcome, len(a.adapters))

	var wg sync.WaitGroup
	for i, ad := range a.adapters {
		wg.Add(1)
		go func(i int, ad port.Adapter) {
			defer wg.Done()
			rates, err := ad.GetFundingRates(ctx)
			outcomes[i] = fetchOutcome{exchange: ad.Name(), rates: rates, err: err}
		}(i, ad)
	}
	wg.Wait()

	now := time.Now().UnixMilli()
	merged := make([]model.FundingRate, 0)
	for i, out := range outcomes {
		if out.err != nil {
			log.Warn().
				Str("exchange", out.exchange).
				Err(out.err).
				Msg("funding rate fetch failed, skipping exchange for this pass")
			continue
		}
		ad := a.adapters[i]
		for _, r := range out.rates {
			merged = append(merged, normalizeRate(ad, r, now))
		}
	}
	return merged
}

// normalizeRate 填充标准化字段
// 缺失的数值回退为 0：没有指数价是合法的市场状态，下游排序依赖这个约定
func normalizeRate(ad port.Adapter, r model.FundingRate, now int64) model.FundingRate {
	r.Exchange = ad.Name()
	if r.BaseToken == "" {
		r.BaseToken = ad.BaseToken(r.Symbol)
	}
	r.MarkPrice = finiteOrZero(r.MarkPrice)
	r.IndexPrice = finiteOrZero(r.IndexPrice)
	r.FundingRate = finiteOrZero(r.FundingRate)
	if r.FundingTimestamp <= 0 {
		r.FundingTimestamp = now
	}
	if r.Interval == "" {
		r.Interval = "8h"
	}
	return r
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
