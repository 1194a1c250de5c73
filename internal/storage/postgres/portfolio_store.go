package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// PortfolioStore implements storage.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *Pool
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(pool *Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

var _ storage.PortfolioStore = (*PortfolioStore)(nil)

const portfolioColumns = `
	id, user_id, name, description,
	initial_capital, current_value, cash, total_return,
	positions, created_at, updated_at
`

func marshalHoldings(h []domain.Holding) ([]byte, error) {
	if h == nil {
		h = []domain.Holding{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal positions: %w", err)
	}
	return data, nil
}

// Insert adds a portfolio. Returns ErrDuplicateKey if the ID exists.
func (s *PortfolioStore) Insert(ctx context.Context, p *domain.Portfolio) error {
	if p == nil || p.ID == "" || p.UserID == "" {
		return storage.ErrInvalidInput
	}
	positions, err := marshalHoldings(p.Positions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO portfolios (` + portfolioColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Name, p.Description,
		p.InitialCapital, p.CurrentValue, p.Cash, p.Performance.TotalReturn,
		positions, p.CreatedAt, p.UpdatedAt,
	)
	observe("insert_portfolio", start, err)
	if err != nil {
		return fmt.Errorf("insert portfolio: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves a user's portfolio.
func (s *PortfolioStore) GetByID(ctx context.Context, userID, id string) (*domain.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1 AND user_id = $2`

	start := time.Now()
	p, err := scanPortfolio(s.pool.QueryRow(ctx, query, id, userID))
	observe("get_portfolio", start, err)
	if err != nil {
		return nil, fmt.Errorf("get portfolio by id: %w", mapError(err))
	}
	return p, nil
}

// ListByUser retrieves a user's portfolios, newest first.
func (s *PortfolioStore) ListByUser(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	query := `
		SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, userID)
	observe("list_portfolios", start, err)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	result := []*domain.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("scan portfolio row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolio rows: %w", err)
	}
	return result, nil
}

// Update replaces a user's portfolio. CreatedAt is never rewritten.
func (s *PortfolioStore) Update(ctx context.Context, p *domain.Portfolio) error {
	if p == nil || p.ID == "" || p.UserID == "" {
		return storage.ErrInvalidInput
	}
	positions, err := marshalHoldings(p.Positions)
	if err != nil {
		return err
	}

	query := `
		UPDATE portfolios SET
			name = $3, description = $4,
			initial_capital = $5, current_value = $6, cash = $7, total_return = $8,
			positions = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Name, p.Description,
		p.InitialCapital, p.CurrentValue, p.Cash, p.Performance.TotalReturn,
		positions, p.UpdatedAt,
	)
	observe("update_portfolio", start, err)
	if err != nil {
		return fmt.Errorf("update portfolio: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a user's portfolio.
func (s *PortfolioStore) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var positions []byte

	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description,
		&p.InitialCapital, &p.CurrentValue, &p.Cash, &p.Performance.TotalReturn,
		&positions, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(positions, &p.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	return &p, nil
}
