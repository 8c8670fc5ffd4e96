package service

import (
	"sort"
	"time"

	"fundarb/internal/domain/model"
)

// Detector defaults
const (
	DefaultPairwiseLimit = 10
	DefaultRateThreshold = 0.0001
	minExchangesPerToken = 2
)

// OpportunityDetector 机会检测器：按币种计算跨所费率差
// 两种策略：全配对（排行榜展示）和极值对（阈值过滤，自动交易用）
type OpportunityDetector struct {
	limit     int     // 全配对策略的截断数量
	threshold float64 // 极值策略的最小费率差
}

func NewOpportunityDetector(limit int, threshold float64) *OpportunityDetector {
	if limit <= 0 {
		limit = DefaultPairwiseLimit
	}
	// 0 是合法阈值：极值策略放行所有差值 >= 0 的配对；只修正负数
	if threshold < 0 {
		threshold = DefaultRateThreshold
	}
	return &OpportunityDetector{limit: limit, threshold: threshold}
}

// groupByBaseToken 按币种分组，保留首次出现顺序
func groupByBaseToken(rates []model.FundingRate) ([]string, map[string][]model.FundingRate) {
	order := make([]string, 0)
	groups := make(map[string][]model.FundingRate)
	for _, r := range rates {
		if r.BaseToken == "" {
			continue
		}
		if _, ok := groups[r.BaseToken]; !ok {
			order = append(order, r.BaseToken)
		}
		groups[r.BaseToken] = append(groups[r.BaseToken], r)
	}
	return order, groups
}

// pairOpportunity 构造一个配对机会：费率低的所做多
func pairOpportunity(a, b model.FundingRate, now int64) model.ArbitrageOpportunity {
	long, short := a, b
	if b.FundingRate < a.FundingRate {
		long, short = b, a
	}
	return model.ArbitrageOpportunity{
		BaseToken:        long.BaseToken,
		LongExchange:     long.Exchange,
		ShortExchange:    short.Exchange,
		LongRate:         long.FundingRate,
		ShortRate:        short.FundingRate,
		RateDifference:   short.FundingRate - long.FundingRate,
		LongMarkPrice:    long.MarkPrice,
		LongIndexPrice:   long.IndexPrice,
		LongNextFunding:  long.FundingTimestamp,
		ShortMarkPrice:   short.MarkPrice,
		ShortIndexPrice:  short.IndexPrice,
		ShortNextFunding: short.FundingTimestamp,
		Timestamp:        now,
	}
}

// TopPairwise 全配对策略：每个币种枚举所有无序交易所对，
// 每对产出一个机会，按费率差降序稳定排序后截断到 limit
func (d *OpportunityDetector) TopPairwise(rates []model.FundingRate) []model.ArbitrageOpportunity {
	now := time.Now().UnixMilli()
	order, groups := groupByBaseToken(rates)

	opportunities := make([]model.ArbitrageOpportunity, 0)
	for _, token := range order {
		group := groups[token]
		if len(group) < minExchangesPerToken {
			continue // 单所数据无从比较
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				opportunities = append(opportunities, pairOpportunity(group[i], group[j], now))
			}
		}
	}

	// 稳定排序：费率差相等时保留遍历顺序
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].RateDifference > opportunities[j].RateDifference
	})

	if len(opportunities) > d.limit {
		opportunities = opportunities[:d.limit]
	}
	return opportunities
}

// Extremal 极值策略：每个币种只取费率最高与最低的交易所，
// 差值达到阈值才产出，每个币种至多一个机会，不截断
func (d *OpportunityDetector) Extremal(rates []model.FundingRate) []model.ArbitrageOpportunity {
	now := time.Now().UnixMilli()
	order, groups := groupByBaseToken(rates)

	opportunities := make([]model.ArbitrageOpportunity, 0)
	for _, token := range order {
		group := groups[token]
		if len(group) < minExchangesPerToken {
			continue
		}

		lowest, highest := group[0], group[0]
		for _, r := range group[1:] {
			if r.FundingRate < lowest.FundingRate {
				lowest = r
			}
			if r.FundingRate > highest.FundingRate {
				highest = r
			}
		}

		diff := highest.FundingRate - lowest.FundingRate
		if diff < d.threshold {
			continue
		}
		opportunities = append(opportunities, pairOpportunity(lowest, highest, now))
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].RateDifference > opportunities[j].RateDifference
	})
	return opportunities
}
