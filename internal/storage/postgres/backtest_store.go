package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// BacktestStore implements storage.BacktestStore using PostgreSQL.
type BacktestStore struct {
	pool *Pool
}

// NewBacktestStore creates a new BacktestStore.
func NewBacktestStore(pool *Pool) *BacktestStore {
	return &BacktestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestStore = (*BacktestStore)(nil)

const backtestColumns = `
	id, user_id, name, strategy, parameters,
	timeframe_start, timeframe_end, symbols, skipped_symbols,
	total_return, return_percent, sharpe_ratio, max_drawdown, win_rate,
	total_trades, profitable_trades, trades, created_at
`

// Insert adds a result. Returns ErrDuplicateKey if the ID exists.
func (s *BacktestStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return storage.ErrInvalidInput
	}

	params, err := json.Marshal(r.Parameters.Clone())
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	trades := r.Trades
	if trades == nil {
		trades = []domain.Trade{}
	}
	tradesJSON, err := json.Marshal(trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}

	query := `
		INSERT INTO backtest_results (` + backtestColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)
	`

	m := r.Results
	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		r.ID, r.UserID, r.Name, string(r.Strategy), params,
		r.Timeframe.Start, r.Timeframe.End, nonNil(r.Symbols), nonNil(r.SkippedSymbols),
		m.TotalReturn, m.ReturnPercent, m.SharpeRatio, m.MaxDrawdown, m.WinRate,
		m.TotalTrades, m.ProfitableTrades, tradesJSON, r.CreatedAt,
	)
	observe("insert_backtest", start, err)
	if err != nil {
		return fmt.Errorf("insert backtest result: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves a user's result.
func (s *BacktestStore) GetByID(ctx context.Context, userID, id string) (*domain.BacktestResult, error) {
	query := `SELECT ` + backtestColumns + ` FROM backtest_results WHERE id = $1 AND user_id = $2`

	start := time.Now()
	r, err := scanBacktest(s.pool.QueryRow(ctx, query, id, userID))
	observe("get_backtest", start, err)
	if err != nil {
		return nil, fmt.Errorf("get backtest result by id: %w", mapError(err))
	}
	return r, nil
}

// ListByUser retrieves a page of a user's results, newest first.
func (s *BacktestStore) ListByUser(ctx context.Context, userID string, page storage.Page) ([]*domain.BacktestResult, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM backtest_results WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count backtest results: %w", err)
	}

	query := `
		SELECT ` + backtestColumns + `
		FROM backtest_results
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, userID, limitArg(page.Limit), max(page.Offset, 0))
	observe("list_backtests", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("list backtest results: %w", err)
	}
	defer rows.Close()

	results, err := scanBacktests(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// Delete removes a user's result.
func (s *BacktestStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM backtest_results WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete backtest result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanBacktest scans a single row into a BacktestResult.
func scanBacktest(row rowScanner) (*domain.BacktestResult, error) {
	var r domain.BacktestResult
	var strategy string
	var params, trades []byte

	err := row.Scan(
		&r.ID, &r.UserID, &r.Name, &strategy, &params,
		&r.Timeframe.Start, &r.Timeframe.End, &r.Symbols, &r.SkippedSymbols,
		&r.Results.TotalReturn, &r.Results.ReturnPercent, &r.Results.SharpeRatio,
		&r.Results.MaxDrawdown, &r.Results.WinRate,
		&r.Results.TotalTrades, &r.Results.ProfitableTrades, &trades, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Strategy = domain.StrategyName(strategy)
	if err := json.Unmarshal(params, &r.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal(trades, &r.Trades); err != nil {
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}
	if len(r.SkippedSymbols) == 0 {
		r.SkippedSymbols = nil
	}

	return &r, nil
}

// scanBacktests scans multiple rows into a slice of BacktestResult.
func scanBacktests(rows pgx.Rows) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		r, err := scanBacktest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest result rows: %w", err)
	}

	return results, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as no limit.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
