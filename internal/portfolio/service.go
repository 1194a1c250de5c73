// Package portfolio tracks user portfolios and revalues their holdings
// against the latest market prices.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/storage"
)

// DefaultPriceLookback is how far back Revalue searches for a closing price.
const DefaultPriceLookback = 7 * 24 * time.Hour

var (
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid portfolio request")

	// ErrPositionNotFound is returned when removing a symbol the portfolio does not hold.
	ErrPositionNotFound = errors.New("position not found")
)

// CreateRequest describes a new portfolio.
type CreateRequest struct {
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	InitialCapital float64 `json:"initialCapital"`
}

// PositionRequest describes shares bought into a portfolio.
type PositionRequest struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AveragePrice float64 `json:"averagePrice"`
	SignalID     string  `json:"signalId,omitempty"`
}

// Service manages portfolios.
type Service struct {
	store     storage.PortfolioStore
	priceFeed feed.PriceFeed
	lookback  time.Duration
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger
}

// Options contains configuration for creating a Service.
type Options struct {
	// Required
	Store     storage.PortfolioStore
	PriceFeed feed.PriceFeed

	// Optional
	Lookback time.Duration
	Now      func() time.Time
	NewID    func() string
	Logger   *zerolog.Logger
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s := &Service{
		store:     opts.Store,
		priceFeed: opts.PriceFeed,
		lookback:  opts.Lookback,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    logger.With().Str("component", "portfolio").Logger(),
	}
	if s.lookback <= 0 {
		s.lookback = DefaultPriceLookback
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Create stores an empty portfolio holding its initial capital in cash.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Portfolio, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if !(req.InitialCapital > 0) {
		return nil, fmt.Errorf("%w: initial capital must be positive", ErrInvalidRequest)
	}

	now := s.now().UTC()
	p := &domain.Portfolio{
		ID:             s.newID(),
		UserID:         req.UserID,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		InitialCapital: req.InitialCapital,
		CurrentValue:   req.InitialCapital,
		Cash:           req.InitialCapital,
		Positions:      []domain.Holding{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("persist portfolio: %w", err)
	}

	s.logger.Info().Str("id", p.ID).Str("user_id", p.UserID).Msg("portfolio created")
	return p, nil
}

// List returns a user's portfolios, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	return s.store.ListByUser(ctx, userID)
}

// Get returns one of a user's portfolios.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Portfolio, error) {
	return s.store.GetByID(ctx, userID, id)
}

// Delete removes one of a user's portfolios.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.store.Delete(ctx, userID, id)
}

// AddPosition buys shares into a portfolio. An existing holding in the same
// symbol is merged at the quantity-weighted average price.
func (s *Service) AddPosition(ctx context.Context, userID, id string, req PositionRequest) (*domain.Portfolio, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if !domain.ValidSymbol(symbol) {
		return nil, fmt.Errorf("%w: invalid symbol %q", ErrInvalidRequest, req.Symbol)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if !(req.AveragePrice > 0) {
		return nil, fmt.Errorf("%w: average price must be positive", ErrInvalidRequest)
	}

	p, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if i := p.HoldingIndex(symbol); i >= 0 {
		h := &p.Positions[i]
		total := h.Quantity + req.Quantity
		cost := decimal.NewFromFloat(h.AveragePrice).Mul(decimal.NewFromInt(h.Quantity)).
			Add(decimal.NewFromFloat(req.AveragePrice).Mul(decimal.NewFromInt(req.Quantity)))
		h.AveragePrice = cost.Div(decimal.NewFromInt(total)).InexactFloat64()
		h.Quantity = total
		if req.SignalID != "" {
			h.SignalID = req.SignalID
		}
	} else {
		p.Positions = append(p.Positions, domain.Holding{
			Symbol:       symbol,
			Quantity:     req.Quantity,
			AveragePrice: req.AveragePrice,
			CurrentPrice: req.AveragePrice,
			SignalID:     req.SignalID,
		})
	}

	return s.save(ctx, p)
}

// RemovePosition sells quantity shares of symbol. A non-positive quantity,
// or one at least the held quantity, removes the holding entirely.
func (s *Service) RemovePosition(ctx context.Context, userID, id, symbol string, quantity int64) (*domain.Portfolio, error) {
	p, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	i := p.HoldingIndex(symbol)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
	}
	if quantity <= 0 || quantity >= p.Positions[i].Quantity {
		p.Positions = append(p.Positions[:i], p.Positions[i+1:]...)
	} else {
		p.Positions[i].Quantity -= quantity
	}

	return s.save(ctx, p)
}

// Revalue prices every holding at its latest close and recomputes the
// portfolio value. A holding whose price cannot be fetched keeps its
// previous current price.
func (s *Service) Revalue(ctx context.Context, userID, id string) (*domain.Portfolio, error) {
	p, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	start := end.Add(-s.lookback)
	for i := range p.Positions {
		h := &p.Positions[i]
		price, ok := s.latestClose(ctx, h.Symbol, start, end)
		if ok {
			h.CurrentPrice = price
		}
	}

	return s.save(ctx, p)
}

// latestClose returns the close of the most recent bar in [start, end].
func (s *Service) latestClose(ctx context.Context, symbol string, start, end time.Time) (float64, bool) {
	bars, err := s.priceFeed.FetchBars(ctx, symbol, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed, keeping last price")
		return 0, false
	}
	if len(bars) == 0 {
		s.logger.Debug().Str("symbol", symbol).Msg("no recent bars, keeping last price")
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// save recomputes the derived values of p and persists it.
func (s *Service) save(ctx context.Context, p *domain.Portfolio) (*domain.Portfolio, error) {
	recompute(p)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("persist portfolio: %w", err)
	}
	return p, nil
}

// recompute derives cash, market value, unrealized P&L and total return
// from the holdings. Cash is the initial capital less the cost basis.
func recompute(p *domain.Portfolio) {
	initial := decimal.NewFromFloat(p.InitialCapital)
	cost := decimal.Zero
	market := decimal.Zero

	for i := range p.Positions {
		h := &p.Positions[i]
		qty := decimal.NewFromInt(h.Quantity)
		avg := decimal.NewFromFloat(h.AveragePrice)
		cur := decimal.NewFromFloat(h.CurrentPrice)

		cost = cost.Add(avg.Mul(qty))
		market = market.Add(cur.Mul(qty))
		h.UnrealizedPnL = cur.Sub(avg).Mul(qty).InexactFloat64()
	}

	cash := initial.Sub(cost)
	value := market.Add(cash)
	p.Cash = cash.InexactFloat64()
	p.CurrentValue = value.InexactFloat64()
	p.Performance.TotalReturn = 0
	if initial.IsPositive() {
		p.Performance.TotalReturn = value.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
}
