package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Repo 把套利机会与执行事件扇出到 Redis
// Hash 存每个币种的最新机会, Stream + PubSub 给下游消费者
type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":opportunities:latest"
	oppStream string
	oppChan   string
	execChan  string
}

var _ port.Repository = (*Repo)(nil)

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "fundarb"
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":opportunities:latest",
		oppStream: prefix + ":opportunities",
		oppChan:   prefix + ":opportunities:pub",
		execChan:  prefix + ":executions:pub",
	}
}

func (r *Repo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	b, err := json.Marshal(opp)
	if err != nil {
		return err
	}

	// Hash: field = "BTC" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, opp.BaseToken, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	// Stream: XADD <stream> * token long short diff payload
	if _, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.oppStream,
		Values: map[string]any{
			"base_token":     opp.BaseToken,
			"long_exchange":  opp.LongExchange,
			"short_exchange": opp.ShortExchange,
			"rate_diff":      opp.RateDifference,
			"ts_ms":          opp.Timestamp,
			"payload":        string(b),
		},
	}).Result(); err != nil {
		return err
	}

	// PubSub: PUBLISH <channel> json
	return r.rdb.Publish(ctx, r.oppChan, string(b)).Err()
}

func (r *Repo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.execChan, string(b)).Err()
}

func (r *Repo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	// 半腿敞口需要人工介入, 除持久化外额外推送告警
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s:alerts:partial_hedge", r.prefix)
	return r.rdb.Publish(ctx, channel, string(b)).Err()
}

// ListOpenPartialHedges Redis 只做事件扇出, 查询走持久化仓储
func (r *Repo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	return nil, nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	// optional: store snapshots in Redis stream / list later
	return nil
}

func (r *Repo) Close() error { return r.rdb.Close() }
