package postgres

import (
	"context"
	"fmt"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// NewsStore implements storage.NewsStore using PostgreSQL.
type NewsStore struct {
	pool *Pool
}

// NewNewsStore creates a new NewsStore.
func NewNewsStore(pool *Pool) *NewsStore {
	return &NewsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NewsStore = (*NewsStore)(nil)

// Insert adds a news item. Returns ErrDuplicateKey if (symbol, url) exists.
func (s *NewsStore) Insert(ctx context.Context, item *domain.NewsItem) error {
	if item == nil || item.Symbol == "" || item.URL == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO news_items (symbol, url, headline, summary, source, published_at, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		item.Symbol, item.URL, item.Headline, item.Summary, item.Source,
		item.PublishedAt, item.Sentiment,
	)
	observe("insert_news", start, err)
	if err != nil {
		return fmt.Errorf("insert news item: %w", mapError(err))
	}
	return nil
}

// GetSince retrieves items for a symbol published after since, newest first.
func (s *NewsStore) GetSince(ctx context.Context, symbol string, since time.Time) ([]*domain.NewsItem, error) {
	query := `
		SELECT symbol, url, headline, summary, source, published_at, sentiment
		FROM news_items
		WHERE symbol = $1 AND published_at > $2
		ORDER BY published_at DESC, url ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, symbol, since)
	observe("get_news_since", start, err)
	if err != nil {
		return nil, fmt.Errorf("query news items: %w", err)
	}
	defer rows.Close()

	var items []*domain.NewsItem
	for rows.Next() {
		var item domain.NewsItem
		if err := rows.Scan(
			&item.Symbol, &item.URL, &item.Headline, &item.Summary, &item.Source,
			&item.PublishedAt, &item.Sentiment,
		); err != nil {
			return nil, fmt.Errorf("scan news item row: %w", err)
		}
		item.PublishedAt = item.PublishedAt.UTC()
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news item rows: %w", err)
	}

	return items, nil
}
