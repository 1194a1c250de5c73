package migrations

import (
	"context"
	"fmt"

	"market-signal-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema in one transaction,
// files in name order. Every statement uses IF NOT EXISTS, so reruns are no-ops.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range files {
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
