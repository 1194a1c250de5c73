package storage

import (
	"context"
	"math"
	"time"

	"market-signal-lab/internal/domain"
)

// PriceBarStore provides access to daily price bar storage.
type PriceBarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.PriceBar, error)

	// GetLatest retrieves the most recent bar for a symbol. Returns ErrNotFound if none exist.
	GetLatest(ctx context.Context, symbol string) (*domain.PriceBar, error)

	// ListSymbols returns every symbol with at least one bar, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}

// NewsStore provides access to news item storage.
type NewsStore interface {
	// Insert adds a news item. Returns ErrDuplicateKey if the URL already exists for the symbol.
	Insert(ctx context.Context, n *domain.NewsItem) error

	// GetSince retrieves items for a symbol published after since, newest first.
	GetSince(ctx context.Context, symbol string, since time.Time) ([]*domain.NewsItem, error)
}

// BacktestStore provides access to backtest result storage.
// Reads and deletes are scoped to the owning user.
type BacktestStore interface {
	// Insert adds a result. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a user's result. Returns ErrNotFound if it does not exist
	// or belongs to another user.
	GetByID(ctx context.Context, userID, id string) (*domain.BacktestResult, error)

	// ListByUser retrieves a page of a user's results, newest first, and the user's total count.
	ListByUser(ctx context.Context, userID string, page Page) ([]*domain.BacktestResult, int, error)

	// Delete removes a user's result. Returns ErrNotFound if it does not exist
	// or belongs to another user.
	Delete(ctx context.Context, userID, id string) error
}

// PortfolioStore provides access to portfolio storage.
// Every operation is scoped to the owning user.
type PortfolioStore interface {
	// Insert adds a portfolio. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, p *domain.Portfolio) error

	// GetByID retrieves a user's portfolio. Returns ErrNotFound if it does not exist
	// or belongs to another user.
	GetByID(ctx context.Context, userID, id string) (*domain.Portfolio, error)

	// ListByUser retrieves all of a user's portfolios, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Portfolio, error)

	// Update replaces a stored portfolio. Returns ErrNotFound if it does not exist
	// or belongs to another user.
	Update(ctx context.Context, p *domain.Portfolio) error

	// Delete removes a user's portfolio. Returns ErrNotFound if it does not exist
	// or belongs to another user.
	Delete(ctx context.Context, userID, id string) error
}

// SignalStore provides access to generated signal storage.
type SignalStore interface {
	// InsertBulk adds multiple signals atomically. Fails entire batch on any duplicate ID.
	InsertBulk(ctx context.Context, signals []*domain.Signal) error

	// GetByID retrieves a signal. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Signal, error)

	// Query retrieves signals matching filter, newest first, and the total match count.
	Query(ctx context.Context, filter SignalFilter, page Page) ([]*domain.Signal, int, error)

	// Delete removes a signal. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error

	// Stats aggregates signals with timestamp >= since.
	// ByType is ordered by signal type; TopSymbols by descending count, at most topN.
	Stats(ctx context.Context, since time.Time, topN int) (*domain.SignalStats, error)
}

// SignalFilter narrows a signal query. Zero fields match everything.
type SignalFilter struct {
	Symbol     string
	SignalType domain.SignalType
	Source     domain.SignalSource
	Since      time.Time
}

// Matches reports whether s satisfies the filter.
func (f SignalFilter) Matches(s *domain.Signal) bool {
	if f.Symbol != "" && s.Symbol != f.Symbol {
		return false
	}
	if f.SignalType != "" && s.SignalType != f.SignalType {
		return false
	}
	if f.Source != "" && s.Source != f.Source {
		return false
	}
	if !f.Since.IsZero() && s.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// MaxPageLimit caps the number of records a single page may request.
const MaxPageLimit = 100

// Page selects a window of an ordered result set.
type Page struct {
	Limit  int
	Offset int
}

// NewPage converts a 1-based page number and a limit into a Page.
// Non-positive values select page 1 and defaultLimit; limits above MaxPageLimit are capped.
// Offsets past the addressable range saturate instead of overflowing.
func NewPage(page, limit, defaultLimit int) Page {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}
	return Page{Limit: limit, Offset: offset}
}

// Window clamps the page to a result set of length n and returns slice bounds.
func (p Page) Window(n int) (int, int) {
	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && p.Limit < n-start {
		end = start + p.Limit
	}
	return start, end
}
