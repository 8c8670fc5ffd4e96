package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Repo 快照归档仓储
// 只负责长期留存聚合快照, 其余写操作由主仓储承担
type Repo struct {
	db *sql.DB
}

var _ port.Repository = (*Repo)(nil)

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	return nil
}

func (r *Repo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	return nil
}

func (r *Repo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	return nil
}

func (r *Repo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	return nil, nil
}
