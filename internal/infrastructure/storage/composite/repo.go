package composite

import (
	"context"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Repo 多仓储扇出: 写操作广播到所有仓储, 返回第一个错误
type Repo struct {
	repos []port.Repository
}

var _ port.Repository = (*Repo)(nil)

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOpportunity(ctx, opp); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveExecution(ctx, report); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SavePartialHedge(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListOpenPartialHedges 返回第一个有数据的仓储结果
func (r *Repo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	var firstErr error
	for _, repo := range r.repos {
		records, err := repo.ListOpenPartialHedges(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, firstErr
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertSnapshot(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
