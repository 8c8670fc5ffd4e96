package service

import (
	"context"
	"sync"
	"time"

	"fundarb/internal/domain/model"
	domainservice "fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
)

// Detection policy names
const (
	PolicyPairwise = "pairwise"
	PolicyExtremal = "extremal"
)

const DefaultSnapshotTTL = 60 * time.Second

// SnapshotService 单槽 TTL 缓存，约束对交易所的调用频率
// 槽整体读整体换，从不部分修改；并发刷新可能重复跑一次
// 聚合管线，属于可接受的重复而非正确性问题
type SnapshotService struct {
	aggregator *RateAggregator
	detector   *domainservice.OpportunityDetector
	policy     string
	ttl        time.Duration

	mu        sync.Mutex
	cached    *model.Snapshot
	fetchedAt time.Time
}

func NewSnapshotService(aggregator *RateAggregator, detector *domainservice.OpportunityDetector, policy string, ttl time.Duration) *SnapshotService {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if policy != PolicyExtremal {
		policy = PolicyPairwise
	}
	return &SnapshotService{
		aggregator: aggregator,
		detector:   detector,
		policy:     policy,
		ttl:        ttl,
	}
}

// Get 返回聚合快照；缓存未过期且不强制刷新时直接复用
func (s *SnapshotService) Get(ctx context.Context, forceRefresh bool) *model.Snapshot {
	s.mu.Lock()
	if !forceRefresh && s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		snap := s.cached
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()

	// 管线在锁外执行：慢的交易所不能把读方全部卡住
	snap := s.refresh(ctx)

	s.mu.Lock()
	s.cached = snap
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return snap
}

func (s *SnapshotService) refresh(ctx context.Context) *model.Snapshot {
	started := time.Now()
	rates := s.aggregator.Aggregate(ctx)

	var opportunities []model.ArbitrageOpportunity
	if s.policy == PolicyExtremal {
		opportunities = s.detector.Extremal(rates)
	} else {
		opportunities = s.detector.TopPairwise(rates)
	}

	log.Debug().
		Int("rates", len(rates)).
		Int("opportunities", len(opportunities)).
		Dur("elapsed", time.Since(started)).
		Msg("snapshot refreshed")

	return &model.Snapshot{
		FundingRates:  rates,
		Opportunities: opportunities,
		GeneratedAt:   time.Now().UnixMilli(),
	}
}
