package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/storage"
)

// Pool settings for the signal and backtest stores.
const (
	applicationName = "market-signal-lab"
	maxConns        = 10
	maxConnIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Pool wraps pgxpool.Pool so stores and migrations share one handle.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > maxConns {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

const pgErrUniqueViolation = "23505"

// mapError translates driver errors into storage sentinels.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return storage.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation:
		return storage.ErrDuplicateKey
	default:
		return err
	}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// observe records the duration of a query started at start.
func observe(operation string, start time.Time, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}
