package clickhouse

import (
	"context"
	"fmt"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using ClickHouse.
type PriceBarStore struct {
	conn *Conn
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(conn *Conn) *PriceBarStore {
	return &PriceBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, ts).
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *PriceBarStore) InsertBulk(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates, grouping timestamps per symbol
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]struct{}, len(bars))
	bySymbol := make(map[string][]time.Time)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b.Timestamp.UTC())
	}

	// Check for duplicates against existing rows
	for symbol, stamps := range bySymbol {
		n, err := s.countExisting(ctx, symbol, stamps)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if n > 0 {
			return storage.ErrDuplicateKey
		}
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (symbol, ts, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(b.Symbol, b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_price_bars", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *PriceBarStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceBar, error) {
	query := `
		SELECT symbol, ts, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	began := time.Now()
	rows, err := s.conn.Query(ctx, query, symbol, start.UTC(), end.UTC())
	observability.RecordDBQuery("clickhouse", "price_bars_by_range", time.Since(began).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetLatest retrieves the most recent bar for a symbol.
func (s *PriceBarStore) GetLatest(ctx context.Context, symbol string) (*domain.PriceBar, error) {
	query := `
		SELECT symbol, ts, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	bars, err := scanPriceBars(rows)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, storage.ErrNotFound
	}
	return bars[0], nil
}

// ListSymbols returns every symbol with at least one bar.
func (s *PriceBarStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM price_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

// countExisting counts stored bars for symbol at any of the given timestamps.
func (s *PriceBarStore) countExisting(ctx context.Context, symbol string, stamps []time.Time) (uint64, error) {
	query := `
		SELECT count() FROM price_bars
		WHERE symbol = ? AND ts IN (?)
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, stamps).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// scanPriceBars scans multiple rows.
func scanPriceBars(rows chRows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
