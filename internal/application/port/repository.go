package port

import (
	"context"

	"fundarb/internal/domain/model"
)

type Repository interface {
	// Opportunity operations
	SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error

	// Execution operations
	SaveExecution(ctx context.Context, report *model.ExecutionReport) error

	// Partial hedge bookkeeping: unresolved records need manual correction
	SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error
	ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error)

	// Snapshot operations
	InsertSnapshot(ctx context.Context, ts int64, payload string) error

	// Connection management
	Close() error
}
