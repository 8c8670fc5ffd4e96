package monitor

import (
	"context"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type noopRepo struct{}

// NewNoopRepo 纯监控模式下的占位仓储
func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	return nil
}

func (n *noopRepo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	return nil
}

func (n *noopRepo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	return nil
}

func (n *noopRepo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	return nil, nil
}

func (n *noopRepo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	return nil
}

func (n *noopRepo) Close() error { return nil }
