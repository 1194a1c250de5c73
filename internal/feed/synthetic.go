package feed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"market-signal-lab/internal/domain"
)

// basePrices anchors the synthetic series of well-known symbols.
var basePrices = map[string]float64{
	"AAPL": 175, "MSFT": 335, "GOOGL": 135, "AMZN": 145,
	"TSLA": 235, "META": 320, "NFLX": 415, "NVDA": 450,
}

const defaultBasePrice = 100.0

// BasePrice returns the anchor price of a symbol's synthetic series.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return defaultBasePrice
}

// SyntheticPriceFeed generates one deterministic bar per UTC day.
// A given (symbol, day) always yields the same bar, independent of the window.
type SyntheticPriceFeed struct{}

// NewSyntheticPriceFeed creates an offline price feed.
func NewSyntheticPriceFeed() *SyntheticPriceFeed {
	return &SyntheticPriceFeed{}
}

// FetchBars implements PriceFeed.
func (f *SyntheticPriceFeed) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := symbolSeed(symbol)
	phase := float64(seed%628) / 100
	base := BasePrice(symbol)

	var bars []domain.PriceBar
	for day := truncateDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.Before(start) {
			continue
		}
		n := day.Unix() / 86400
		rng := rand.New(rand.NewPCG(seed, uint64(n)))

		x := float64(n)
		price := base * (1 + 0.08*math.Sin(x/9+phase) + 0.03*math.Sin(x/3.7+2*phase))
		open := price * (1 - rng.Float64()*0.015)
		bars = append(bars, domain.PriceBar{
			Symbol:    symbol,
			Timestamp: day,
			Open:      open,
			High:      math.Max(price, open) * (1 + rng.Float64()*0.02),
			Low:       math.Min(price, open) * (1 - rng.Float64()*0.02),
			Close:     price,
			Volume:    10_000_000 + rng.Uint64N(40_000_000),
		})
	}
	return bars, nil
}

func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SampleNewsFeed serves a fixed set of market headlines relative to the clock.
type SampleNewsFeed struct {
	now func() time.Time
}

// NewSampleNewsFeed creates an offline news feed. A nil now uses time.Now.
func NewSampleNewsFeed(now func() time.Time) *SampleNewsFeed {
	if now == nil {
		now = time.Now
	}
	return &SampleNewsFeed{now: now}
}

type sampleArticle struct {
	source    string
	headline  string
	summary   string
	url       string
	age       time.Duration
	sentiment float64
}

var sampleArticles = []sampleArticle{
	{
		source:    "Financial Times",
		headline:  "Stock Markets Show Strong Performance This Week",
		summary:   "Global markets continue to show resilience amid economic changes.",
		url:       "https://example.com/news/1",
		sentiment: 0.15,
	},
	{
		source:    "Bloomberg",
		headline:  "Tech Stocks Lead Market Gains",
		summary:   "Technology companies report strong quarterly earnings.",
		url:       "https://example.com/news/2",
		age:       2 * time.Hour,
		sentiment: 0.25,
	},
	{
		source:    "Reuters",
		headline:  "Market Volatility Expected in Coming Days",
		summary:   "Analysts predict increased volatility due to economic indicators.",
		url:       "https://example.com/news/3",
		age:       4 * time.Hour,
		sentiment: -0.1,
	},
}

// FetchNews implements NewsFeed.
func (f *SampleNewsFeed) FetchNews(ctx context.Context, symbol string, since time.Time) ([]domain.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := f.now()
	items := make([]domain.NewsItem, 0, len(sampleArticles))
	for _, a := range sampleArticles {
		items = append(items, domain.NewsItem{
			Symbol:      symbol,
			Headline:    a.headline,
			Summary:     a.summary,
			Source:      a.source,
			URL:         a.url,
			PublishedAt: now.Add(-a.age),
			Sentiment:   a.sentiment,
		})
	}
	return FilterNews(items, since), nil
}

var (
	_ PriceFeed = (*SyntheticPriceFeed)(nil)
	_ NewsFeed  = (*SampleNewsFeed)(nil)
)
