package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekinoksoz/lobsim/internal/domain"
)

// RunStore persists backtest run results.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// SaveRun stores the run summary row plus its full execution log in one
// transaction. Executions are queued as a pgx batch to avoid a round trip
// per fill.
func (s *RunStore) SaveRun(ctx context.Context, res domain.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertRun = `
		INSERT INTO runs (
			id, asset, strategy, initial_cash, final_cash,
			final_position, asset_value, final_equity, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.Exec(ctx, insertRun,
		res.RunID, res.Asset, res.Strategy, res.InitialCash, res.FinalCash,
		res.FinalPosition, res.AssetValue, res.FinalEquity, res.StartedAt, res.FinishedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", res.RunID, err)
	}

	if len(res.Executions) > 0 {
		const insertExec = `
			INSERT INTO executions (run_id, seq, ts, price, qty, cash, position, mark_to_market)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		batch := &pgx.Batch{}
		for i, ex := range res.Executions {
			batch.Queue(insertExec,
				res.RunID, i, ex.Time, ex.Price, ex.Qty, ex.Cash, ex.Position, ex.MarkToMarket,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range res.Executions {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert executions for run %s: %w", res.RunID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close execution batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit run %s: %w", res.RunID, err)
	}
	return nil
}

// GetRun loads a run summary by ID. The execution log is loaded separately
// with ListExecutions.
func (s *RunStore) GetRun(ctx context.Context, runID string) (domain.RunResult, error) {
	const query = `
		SELECT id, asset, strategy, initial_cash, final_cash,
		       final_position, asset_value, final_equity, started_at, finished_at
		FROM runs WHERE id = $1`

	var res domain.RunResult
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&res.RunID, &res.Asset, &res.Strategy, &res.InitialCash, &res.FinalCash,
		&res.FinalPosition, &res.AssetValue, &res.FinalEquity, &res.StartedAt, &res.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RunResult{}, fmt.Errorf("postgres: run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("postgres: get run %s: %w", runID, err)
	}
	return res, nil
}

// ListExecutions returns the execution log of a run in fill order.
func (s *RunStore) ListExecutions(ctx context.Context, runID string) ([]domain.Execution, error) {
	const query = `
		SELECT ts, price, qty, cash, position, mark_to_market
		FROM executions WHERE run_id = $1 ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.Execution
	for rows.Next() {
		var ex domain.Execution
		if err := rows.Scan(&ex.Time, &ex.Price, &ex.Qty, &ex.Cash, &ex.Position, &ex.MarkToMarket); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ListRuns returns the most recent run summaries for an asset, newest first.
func (s *RunStore) ListRuns(ctx context.Context, asset string, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, asset, strategy, initial_cash, final_cash,
		       final_position, asset_value, final_equity, started_at, finished_at
		FROM runs WHERE asset = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs for %s: %w", asset, err)
	}
	defer rows.Close()

	var out []domain.RunResult
	for rows.Next() {
		var res domain.RunResult
		if err := rows.Scan(
			&res.RunID, &res.Asset, &res.Strategy, &res.InitialCash, &res.FinalCash,
			&res.FinalPosition, &res.AssetValue, &res.FinalEquity, &res.StartedAt, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
