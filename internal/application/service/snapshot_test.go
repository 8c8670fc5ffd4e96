package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	domainservice "fundarb/internal/domain/service"
)

// countingAdapter 统计拉取次数
type countingAdapter struct {
	fakeAdapter
	calls atomic.Int64
}

func (c *countingAdapter) GetFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	c.calls.Add(1)
	return c.fakeAdapter.GetFundingRates(ctx)
}

func newSnapshotFixture(ttl time.Duration) (*SnapshotService, *countingAdapter) {
	ad := &countingAdapter{fakeAdapter: fakeAdapter{
		name: "binance",
		rates: []model.FundingRate{
			{Symbol: "BTCUSDT", FundingRate: 0.0001},
		},
	}}
	agg := NewRateAggregator([]port.Adapter{ad})
	det := domainservice.NewOpportunityDetector(10, 0.0001)
	return NewSnapshotService(agg, det, PolicyPairwise, ttl), ad
}

// TestSnapshotCacheHit TTL 内重复请求复用缓存
func TestSnapshotCacheHit(t *testing.T) {
	svc, ad := newSnapshotFixture(time.Minute)
	ctx := context.Background()

	first := svc.Get(ctx, false)
	second := svc.Get(ctx, false)

	if first == nil || second == nil {
		t.Fatal("snapshot should never be nil")
	}
	if first != second {
		t.Error("second request within TTL should return the cached snapshot")
	}
	if n := ad.calls.Load(); n != 1 {
		t.Errorf("adapter should be called once, got %d", n)
	}
}

// TestSnapshotForceRefresh 强制刷新绕过缓存
func TestSnapshotForceRefresh(t *testing.T) {
	svc, ad := newSnapshotFixture(time.Minute)
	ctx := context.Background()

	svc.Get(ctx, false)
	svc.Get(ctx, true)

	if n := ad.calls.Load(); n != 2 {
		t.Errorf("force refresh should re-run the pipeline, calls=%d", n)
	}
}

// TestSnapshotExpiry 过期后自动重跑管线
func TestSnapshotExpiry(t *testing.T) {
	svc, ad := newSnapshotFixture(30 * time.Millisecond)
	ctx := context.Background()

	svc.Get(ctx, false)
	time.Sleep(50 * time.Millisecond)
	svc.Get(ctx, false)

	if n := ad.calls.Load(); n != 2 {
		t.Errorf("expired cache should trigger refresh, calls=%d", n)
	}
}
