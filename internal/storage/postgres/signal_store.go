package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	id, symbol, signal_type, strength, source, confidence, description,
	triggers, news_references, price_data, ts, expiration
`

// InsertBulk adds multiple signals in a single transaction.
// Fails entire batch on any duplicate.
func (s *SignalStore) InsertBulk(ctx context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	for _, sig := range signals {
		if sig == nil || sig.ID == "" || sig.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, sig := range signals {
		triggers, refs, priceData, err := encodeSignalDocs(sig)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query,
			sig.ID, sig.Symbol, string(sig.SignalType), sig.Strength, string(sig.Source),
			sig.Confidence, sig.Description, triggers, refs, priceData,
			sig.Timestamp, sig.Expiration,
		)
		if err != nil {
			observe("insert_signals", start, err)
			return fmt.Errorf("insert signal: %w", mapError(err))
		}
	}

	err = tx.Commit(ctx)
	observe("insert_signals", start, err)
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a signal.
func (s *SignalStore) GetByID(ctx context.Context, id string) (*domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`

	sig, err := scanSignal(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get signal by id: %w", mapError(err))
	}
	return sig, nil
}

// Query retrieves a page of signals matching filter, newest first.
func (s *SignalStore) Query(ctx context.Context, filter storage.SignalFilter, page storage.Page) ([]*domain.Signal, int, error) {
	where, args := signalWhere(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM signals`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signals: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals%s
		ORDER BY ts DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, signalColumns, where, n+1, n+2)
	args = append(args, limitArg(page.Limit), max(page.Offset, 0))

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observe("query_signals", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, 0, err
	}
	return signals, total, nil
}

// Delete removes a signal.
func (s *SignalStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Stats aggregates signals with timestamp >= since.
func (s *SignalStore) Stats(ctx context.Context, since time.Time, topN int) (*domain.SignalStats, error) {
	stats := &domain.SignalStats{
		ByType:     []domain.SignalTypeStat{},
		TopSymbols: []domain.SymbolSignalStat{},
		Since:      since,
	}

	typeQuery := `
		SELECT signal_type, count(*),
			ROUND(AVG(strength)::numeric, 3)::float8,
			ROUND(AVG(confidence)::numeric, 3)::float8
		FROM signals
		WHERE ts >= $1
		GROUP BY signal_type
		ORDER BY signal_type
	`
	rows, err := s.pool.Query(ctx, typeQuery, since)
	if err != nil {
		return nil, fmt.Errorf("query signal type stats: %w", err)
	}
	for rows.Next() {
		var st domain.SignalTypeStat
		var signalType string
		if err := rows.Scan(&signalType, &st.Count, &st.AvgStrength, &st.AvgConfidence); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan signal type stat: %w", err)
		}
		st.SignalType = domain.SignalType(signalType)
		stats.ByType = append(stats.ByType, st)
		stats.TotalSignals += st.Count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal type stats: %w", err)
	}

	symbolQuery := `
		SELECT symbol, count(*),
			count(*) FILTER (WHERE signal_type = 'BULLISH'),
			count(*) FILTER (WHERE signal_type = 'BEARISH')
		FROM signals
		WHERE ts >= $1
		GROUP BY symbol
		ORDER BY count(*) DESC, symbol ASC
		LIMIT $2
	`
	rows, err = s.pool.Query(ctx, symbolQuery, since, limitArg(topN))
	if err != nil {
		return nil, fmt.Errorf("query top symbols: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sym domain.SymbolSignalStat
		if err := rows.Scan(&sym.Symbol, &sym.SignalCount, &sym.BullishCount, &sym.BearishCount); err != nil {
			return nil, fmt.Errorf("scan symbol stat: %w", err)
		}
		stats.TopSymbols = append(stats.TopSymbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol stats: %w", err)
	}

	return stats, nil
}

// signalWhere builds a WHERE clause with positional args for filter.
func signalWhere(filter storage.SignalFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Symbol != "" {
		add("symbol = $%d", filter.Symbol)
	}
	if filter.SignalType != "" {
		add("signal_type = $%d", string(filter.SignalType))
	}
	if filter.Source != "" {
		add("source = $%d", string(filter.Source))
	}
	if !filter.Since.IsZero() {
		add("ts >= $%d", filter.Since)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func encodeSignalDocs(sig *domain.Signal) (triggers, refs, priceData []byte, err error) {
	t := sig.Triggers
	if t == nil {
		t = []domain.Trigger{}
	}
	if triggers, err = json.Marshal(t); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal triggers: %w", err)
	}
	r := sig.NewsReferences
	if r == nil {
		r = []domain.NewsReference{}
	}
	if refs, err = json.Marshal(r); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal news references: %w", err)
	}
	if sig.PriceSnapshot != nil {
		if priceData, err = json.Marshal(sig.PriceSnapshot); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal price data: %w", err)
		}
	}
	return triggers, refs, priceData, nil
}

// scanSignal scans a single row into a Signal.
func scanSignal(row rowScanner) (*domain.Signal, error) {
	var sig domain.Signal
	var signalType, source string
	var triggers, refs, priceData []byte

	err := row.Scan(
		&sig.ID, &sig.Symbol, &signalType, &sig.Strength, &source, &sig.Confidence, &sig.Description,
		&triggers, &refs, &priceData, &sig.Timestamp, &sig.Expiration,
	)
	if err != nil {
		return nil, err
	}

	sig.SignalType = domain.SignalType(signalType)
	sig.Source = domain.SignalSource(source)
	if err := json.Unmarshal(triggers, &sig.Triggers); err != nil {
		return nil, fmt.Errorf("unmarshal triggers: %w", err)
	}
	if err := json.Unmarshal(refs, &sig.NewsReferences); err != nil {
		return nil, fmt.Errorf("unmarshal news references: %w", err)
	}
	if len(sig.NewsReferences) == 0 {
		sig.NewsReferences = nil
	}
	if len(priceData) > 0 {
		sig.PriceSnapshot = &domain.PriceSnapshot{}
		if err := json.Unmarshal(priceData, sig.PriceSnapshot); err != nil {
			return nil, fmt.Errorf("unmarshal price data: %w", err)
		}
	}

	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
