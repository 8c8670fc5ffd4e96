package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	appservice "fundarb/internal/application/service"
	"fundarb/internal/domain/model"
)

type PriceFeed = port.PriceFeed

type ServiceDeps struct {
	Feeds         []PriceFeed
	Tokens        []string
	RefreshEvery  time.Duration
	Top           int
	RateThreshold float64
	Snapshots     *appservice.SnapshotService
	Executor      *appservice.HedgeExecutor
	Reconciler    *appservice.PositionReconciler
	Sink          port.Sink
	Repo          port.Repository
}

// Service 资金费率监控主循环
// 实时标记价走 WebSocket, 费率快照按周期刷新并落库
type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		deps: deps,
		st:   NewState(deps.Tokens),
		fmt:  NewFormatter(deps.RateThreshold),
	}
}

func (s *Service) Run(ctx context.Context) error {
	if s.deps.RefreshEvery <= 0 {
		return errors.New("refresh interval must be positive")
	}

	merged := make(chan port.Tick, 1024)

	// start feeds; 费率快照不依赖 ws, 没有 feed 也能跑
	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx, s.deps.Tokens)
		if err != nil {
			return err
		}
		go func(name string, in <-chan port.Tick) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-in:
					if !ok {
						return
					}
					merged <- t
				}
			}
		}(feed.Name(), ch)

		log.Info().Str("feed", feed.Name()).Msg("feed started")
	}

	refreshTicker := time.NewTicker(s.deps.RefreshEvery)
	defer refreshTicker.Stop()

	// 启动即刷一次快照
	s.refreshSnapshot(ctx, time.Now())

	_ = s.deps.Sink.WriteLive(s.fmt.RenderLive(s.st))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-refreshTicker.C:
			s.refreshSnapshot(ctx, now)

		case t := <-merged:
			if s.st.Apply(t) {
				_ = s.deps.Sink.WriteLive(s.fmt.RenderLive(s.st))
			}
		}
	}
}

func (s *Service) refreshSnapshot(ctx context.Context, now time.Time) {
	snap := s.deps.Snapshots.Get(ctx, false)
	if snap == nil {
		return
	}

	lines := s.fmt.RenderOpportunities(snap, s.deps.Top)
	_ = s.deps.Sink.WriteSnapshot(now, lines)

	// 超过阈值的机会逐条落库
	for i := range snap.Opportunities {
		opp := snap.Opportunities[i]
		if opp.RateDifference < s.deps.RateThreshold {
			continue
		}
		if err := s.deps.Repo.SaveOpportunity(ctx, &opp); err != nil {
			log.Warn().Err(err).Str("base_token", opp.BaseToken).Msg("save opportunity failed")
		}
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Msg("marshal snapshot failed")
		return
	}
	if err := s.deps.Repo.InsertSnapshot(ctx, snap.GeneratedAt, string(payload)); err != nil {
		log.Warn().Err(err).Msg("persist snapshot failed")
	}
}

// ExecuteHedge 操作者入口：下发一笔双腿对冲
func (s *Service) ExecuteHedge(ctx context.Context, intent model.TradeIntent) (*model.ExecutionReport, error) {
	if s.deps.Executor == nil {
		return nil, errors.New("execution is not configured")
	}
	return s.deps.Executor.ExecuteHedge(ctx, intent)
}

// CloseHedge 操作者入口：平掉一个币种的对冲
func (s *Service) CloseHedge(ctx context.Context, baseToken string) ([]model.CloseResult, error) {
	if s.deps.Executor == nil {
		return nil, errors.New("execution is not configured")
	}
	return s.deps.Executor.CloseHedge(ctx, baseToken)
}

// CloseEverything 操作者入口：清掉所有交易所的全部持仓
func (s *Service) CloseEverything(ctx context.Context) ([]model.CloseResult, error) {
	if s.deps.Executor == nil {
		return nil, errors.New("execution is not configured")
	}
	return s.deps.Executor.CloseEverything(ctx), nil
}

// OpenPartialHedges 操作者入口：未处理的半腿敞口记录
func (s *Service) OpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	return s.deps.Repo.ListOpenPartialHedges(ctx)
}

// HedgedPositions 操作者入口：跨所持仓对账视图
func (s *Service) HedgedPositions(ctx context.Context) ([]model.HedgedPositionGroup, error) {
	if s.deps.Reconciler == nil {
		return nil, errors.New("reconciliation is not configured")
	}
	return s.deps.Reconciler.Reconcile(ctx), nil
}
