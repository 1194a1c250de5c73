package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage/memory"
)

var (
	testNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	day0    = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	errBoom = errors.New("boom")
)

func fixedNow() time.Time { return testNow }

// sequentialIDs returns id-1, id-2, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

// stubPriceFeed serves fixed bars per symbol.
type stubPriceFeed struct {
	bars map[string][]domain.PriceBar
	errs map[string]error
}

func (f *stubPriceFeed) FetchBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.PriceBar, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

// stubNewsFeed serves fixed news or a fixed error.
type stubNewsFeed struct {
	items []domain.NewsItem
	err   error
}

func (f *stubNewsFeed) FetchNews(_ context.Context, symbol string, _ time.Time) ([]domain.NewsItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.NewsItem, 0, len(f.items))
	for _, n := range f.items {
		n.Symbol = symbol
		out = append(out, n)
	}
	return out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, sig *domain.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, sig.ID)
	return nil
}

type failingBacktestStore struct {
	*memory.BacktestStore
}

func (failingBacktestStore) Insert(context.Context, *domain.BacktestResult) error {
	return errBoom
}

type failingSignalStore struct {
	*memory.SignalStore
}

func (failingSignalStore) InsertBulk(context.Context, []*domain.Signal) error {
	return errBoom
}

func sineBars(symbol string, n int) []domain.PriceBar {
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Symbol:    symbol,
			Timestamp: day0.AddDate(0, 0, i),
			Close:     100 + 20*math.Sin(float64(i)/6),
			Volume:    1000,
		}
	}
	return bars
}

// risingBars closes at 100, 101, ... so RSI is 100 and SMA20 > SMA50.
func risingBars(symbol string, n int) []domain.PriceBar {
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		bars[i] = domain.PriceBar{
			Symbol:    symbol,
			Timestamp: testNow.AddDate(0, 0, i-n),
			Close:     100 + float64(i),
			Volume:    uint64(1000 + i),
		}
	}
	return bars
}
