package feed

import (
	"context"
	"testing"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage/memory"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestFilterBars(t *testing.T) {
	bars := []domain.PriceBar{
		{Timestamp: day0.AddDate(0, 0, 3), Close: 4},
		{Timestamp: day0.AddDate(0, 0, -1), Close: 0},
		{Timestamp: day0, Close: 1},
		{Timestamp: day0.AddDate(0, 0, 2), Close: 3},
		{Timestamp: day0.AddDate(0, 0, 5), Close: 6},
	}

	got := FilterBars(bars, day0, day0.AddDate(0, 0, 3))
	want := []float64{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d bars, got %d", len(want), len(got))
	}
	for i, b := range got {
		if b.Close != want[i] {
			t.Errorf("bar %d: expected close %v, got %v", i, want[i], b.Close)
		}
	}
	if bars[0].Close != 4 {
		t.Error("expected input to be left unsorted")
	}
}

func TestSyntheticPriceFeed_Deterministic(t *testing.T) {
	f := NewSyntheticPriceFeed()
	ctx := context.Background()

	a, err := f.FetchBars(ctx, "AAPL", day0, day0.AddDate(0, 0, 59))
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(a) != 60 {
		t.Fatalf("expected 60 daily bars, got %d", len(a))
	}

	// A sub-window yields identical bars for the shared days.
	b, err := f.FetchBars(ctx, "AAPL", day0.AddDate(0, 0, 10), day0.AddDate(0, 0, 19))
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	for i, bar := range b {
		if bar != a[10+i] {
			t.Fatalf("bar %d differs between windows: %+v vs %+v", i, bar, a[10+i])
		}
	}

	for i, bar := range a {
		if bar.Low > bar.Close || bar.High < bar.Close || bar.Low > bar.Open || bar.High < bar.Open {
			t.Errorf("bar %d violates OHLC bounds: %+v", i, bar)
		}
		if i > 0 && !bar.Timestamp.After(a[i-1].Timestamp) {
			t.Errorf("bar %d not ascending", i)
		}
		if bar.Close < BasePrice("AAPL")*0.85 || bar.Close > BasePrice("AAPL")*1.15 {
			t.Errorf("bar %d close %f far from base price", i, bar.Close)
		}
	}
}

func TestSyntheticPriceFeed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSyntheticPriceFeed().FetchBars(ctx, "AAPL", day0, day0); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestBasePrice(t *testing.T) {
	if BasePrice("NVDA") != 450 {
		t.Errorf("expected NVDA base 450, got %f", BasePrice("NVDA"))
	}
	if BasePrice("ZZZ") != 100 {
		t.Errorf("expected default base 100, got %f", BasePrice("ZZZ"))
	}
}

func TestSampleNewsFeed(t *testing.T) {
	now := day0.Add(12 * time.Hour)
	f := NewSampleNewsFeed(func() time.Time { return now })

	items, err := f.FetchNews(context.Background(), "MSFT", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("FetchNews failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 sample items, got %d", len(items))
	}
	for _, n := range items {
		if n.Symbol != "MSFT" {
			t.Errorf("expected symbol MSFT, got %s", n.Symbol)
		}
	}

	items, _ = f.FetchNews(context.Background(), "MSFT", now.Add(-3*time.Hour))
	if len(items) != 2 {
		t.Errorf("expected 2 items within 3h, got %d", len(items))
	}
}

func TestStoreFeeds(t *testing.T) {
	ctx := context.Background()

	bars := memory.NewPriceBarStore()
	if err := bars.InsertBulk(ctx, []*domain.PriceBar{
		{Symbol: "AAPL", Timestamp: day0, Close: 100},
		{Symbol: "AAPL", Timestamp: day0.AddDate(0, 0, 1), Close: 101},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := NewStorePriceFeed(bars).FetchBars(ctx, "AAPL", day0, day0.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(got) != 2 || got[1].Close != 101 {
		t.Errorf("unexpected bars: %+v", got)
	}

	news := memory.NewNewsStore()
	if err := news.Insert(ctx, &domain.NewsItem{Symbol: "AAPL", URL: "https://n/1", PublishedAt: day0}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	items, err := NewStoreNewsFeed(news).FetchNews(ctx, "AAPL", day0.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FetchNews failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}
