package service

import (
	"context"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// PositionReconciler 跨所持仓对账：拉取各所持仓并按币种分组，
// 判断对冲是否完整。每次调用都是即时视图，不做增量维护
type PositionReconciler struct {
	adapters []port.Adapter
}

func NewPositionReconciler(adapters []port.Adapter) *PositionReconciler {
	return &PositionReconciler{adapters: adapters}
}

// FetchAll 并发拉取所有交易所持仓，单所失败贡献空列表
func (r *PositionReconciler) FetchAll(ctx context.Context) []model.Position {
	results := make([][]model.Position, len(r.adapters))

	var wg sync.WaitGroup
	for i, ad := range r.adapters {
		wg.Add(1)
		go func(i int, ad port.Adapter) {
			defer wg.Done()
			positions, err := ad.GetPositions(ctx)
			if err != nil {
				log.Warn().
					Str("exchange", ad.Name()).
					Err(err).
					Msg("position fetch failed, treating as empty")
				return
			}
			results[i] = positions
		}(i, ad)
	}
	wg.Wait()

	all := make([]model.Position, 0)
	for i, positions := range results {
		ad := r.adapters[i]
		for _, p := range positions {
			if p.Contracts == 0 {
				continue // 平仓后的空行
			}
			p.Exchange = ad.Name()
			if p.BaseToken == "" {
				p.BaseToken = ad.BaseToken(p.Symbol)
			}
			all = append(all, p)
		}
	}
	return all
}

// Reconcile 按币种成组：每组至多一条 long、一条 short，
// 两者齐备即认定对冲成立
func (r *PositionReconciler) Reconcile(ctx context.Context) []model.HedgedPositionGroup {
	positions := r.FetchAll(ctx)

	order := make([]string, 0)
	grouped := make(map[string]*model.HedgedPositionGroup)
	for i := range positions {
		p := positions[i]
		g, ok := grouped[p.BaseToken]
		if !ok {
			g = &model.HedgedPositionGroup{BaseToken: p.BaseToken}
			grouped[p.BaseToken] = g
			order = append(order, p.BaseToken)
		}

		switch p.Side {
		case model.SideLong:
			if g.Long != nil {
				log.Warn().Str("base_token", p.BaseToken).Str("exchange", p.Exchange).
					Msg("duplicate long position in group, keeping first")
				continue
			}
			g.Long = &p
		case model.SideShort:
			if g.Short != nil {
				log.Warn().Str("base_token", p.BaseToken).Str("exchange", p.Exchange).
					Msg("duplicate short position in group, keeping first")
				continue
			}
			g.Short = &p
		}
	}

	groups := make([]model.HedgedPositionGroup, 0, len(order))
	for _, token := range order {
		g := grouped[token]
		g.HasHedge = g.Long != nil && g.Short != nil
		groups = append(groups, *g)
	}
	return groups
}
