package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

var _ port.Repository = (*Repo)(nil)

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS funding_opportunities (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  base_token TEXT NOT NULL,
  long_exchange TEXT NOT NULL,
  short_exchange TEXT NOT NULL,
  long_rate REAL NOT NULL,
  short_rate REAL NOT NULL,
  rate_diff REAL NOT NULL,
  long_mark_price REAL NOT NULL,
  short_mark_price REAL NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_funding_opp_token ON funding_opportunities(base_token);
CREATE INDEX IF NOT EXISTS idx_funding_opp_ts ON funding_opportunities(ts_ms);

CREATE TABLE IF NOT EXISTS executions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  status TEXT NOT NULL,
  base_token TEXT NOT NULL,
  quantity REAL NOT NULL,
  long_exchange TEXT NOT NULL,
  long_order_id TEXT,
  long_error TEXT,
  short_exchange TEXT NOT NULL,
  short_order_id TEXT,
  short_error TEXT,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_token ON executions(base_token);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions(ts_ms);

CREATE TABLE IF NOT EXISTS partial_hedges (
  id TEXT PRIMARY KEY,
  base_token TEXT NOT NULL,
  filled_exchange TEXT NOT NULL,
  filled_side TEXT NOT NULL,
  filled_order_id TEXT NOT NULL,
  failed_exchange TEXT NOT NULL,
  failed_reason TEXT NOT NULL,
  resolved INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_partial_hedges_token ON partial_hedges(base_token);
CREATE INDEX IF NOT EXISTS idx_partial_hedges_resolved ON partial_hedges(resolved);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);
`)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funding_opportunities(
			base_token, long_exchange, short_exchange, long_rate, short_rate,
			rate_diff, long_mark_price, short_mark_price, ts_ms, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, opp.BaseToken, opp.LongExchange, opp.ShortExchange, opp.LongRate, opp.ShortRate,
		opp.RateDifference, opp.LongMarkPrice, opp.ShortMarkPrice, opp.Timestamp, time.Now().UnixMilli())
	return err
}

func (r *Repo) SaveExecution(ctx context.Context, report *model.ExecutionReport) error {
	longOrderID := ""
	if report.LongLeg.Order != nil {
		longOrderID = report.LongLeg.Order.ID
	}
	shortOrderID := ""
	if report.ShortLeg.Order != nil {
		shortOrderID = report.ShortLeg.Order.ID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO executions(
			status, base_token, quantity,
			long_exchange, long_order_id, long_error,
			short_exchange, short_order_id, short_error,
			ts_ms, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.Status, report.BaseToken, report.Quantity,
		report.LongLeg.Exchange, longOrderID, report.LongLeg.Err,
		report.ShortLeg.Exchange, shortOrderID, report.ShortLeg.Err,
		report.Timestamp, time.Now().UnixMilli())
	return err
}

func (r *Repo) SavePartialHedge(ctx context.Context, rec *model.PartialHedgeRecord) error {
	resolved := 0
	if rec.Resolved {
		resolved = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO partial_hedges(
			id, base_token, filled_exchange, filled_side, filled_order_id,
			failed_exchange, failed_reason, resolved, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET resolved=excluded.resolved
	`, rec.ID, rec.BaseToken, rec.FilledExchange, rec.FilledSide, rec.FilledOrderID,
		rec.FailedExchange, rec.FailedReason, resolved, rec.CreatedAt)
	return err
}

func (r *Repo) ListOpenPartialHedges(ctx context.Context) ([]*model.PartialHedgeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, base_token, filled_exchange, filled_side, filled_order_id,
		       failed_exchange, failed_reason, created_at
		FROM partial_hedges
		WHERE resolved = 0
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.PartialHedgeRecord
	for rows.Next() {
		var rec model.PartialHedgeRecord
		if err := rows.Scan(&rec.ID, &rec.BaseToken, &rec.FilledExchange, &rec.FilledSide,
			&rec.FilledOrderID, &rec.FailedExchange, &rec.FailedReason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, ts)
	return err
}
