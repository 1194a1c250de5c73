// Package alpaca fetches historical daily bars from the Alpaca market data API.
package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/observability"
)

// barsGetter is the subset of marketdata.Client used by the feed.
type barsGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client implements feed.PriceFeed over Alpaca daily bars.
type Client struct {
	md barsGetter
}

// New creates a client authenticated with the given key pair.
func New(apiKey, apiSecret string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, fmt.Errorf("alpaca api key and secret are required")
	}
	md := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		Feed:      marketdata.IEX,
	})
	return &Client{md: md}, nil
}

// FetchBars implements feed.PriceFeed.
func (c *Client) FetchBars(ctx context.Context, symbol string, start, end time.Time) (bars []domain.PriceBar, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	began := time.Now()
	defer func() {
		observability.RecordFeedFetch("alpaca", time.Since(began).Seconds(), err)
	}()

	raw, err := c.md.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("get alpaca bars for %s: %w", symbol, err)
	}

	bars = make([]domain.PriceBar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.PriceBar{
			Symbol:    symbol,
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return feed.FilterBars(bars, start, end), nil
}

var _ feed.PriceFeed = (*Client)(nil)
