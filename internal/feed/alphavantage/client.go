// Package alphavantage fetches daily price bars from the Alpha Vantage REST API.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/observability"
)

// DefaultBaseURL is the public Alpha Vantage query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// ErrRateLimited is returned when the API answers with a throttling note.
var ErrRateLimited = errors.New("alpha vantage rate limit")

// Client implements feed.PriceFeed over TIME_SERIES_DAILY.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

type dailyResponse struct {
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, opts ...func(*resty.Client)) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("alpha vantage api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	for _, opt := range opts {
		opt(client)
	}

	return &Client{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// FetchBars implements feed.PriceFeed.
func (c *Client) FetchBars(ctx context.Context, symbol string, start, end time.Time) (bars []domain.PriceBar, err error) {
	began := time.Now()
	defer func() {
		observability.RecordFeedFetch("alphavantage", time.Since(began).Seconds(), err)
	}()

	var payload dailyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"apikey":     c.apiKey,
			"outputsize": "compact",
		}).
		SetResult(&payload).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch daily series: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("alpha vantage responded with status %d", resp.StatusCode())
	}
	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("alpha vantage: %s", payload.ErrorMessage)
	}
	if payload.Note != "" {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, payload.Note)
	}
	if len(payload.TimeSeries) == 0 {
		if payload.Information != "" {
			return nil, fmt.Errorf("alpha vantage: %s", payload.Information)
		}
		return nil, fmt.Errorf("%s: %w", symbol, feed.ErrNoData)
	}

	return feed.FilterBars(parseSeries(symbol, payload.TimeSeries), start, end), nil
}

// parseSeries converts the date-keyed series into ascending bars.
// Malformed rows are skipped.
func parseSeries(symbol string, series map[string]dailyBar) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, len(series))
	for date, raw := range series {
		ts, err := time.Parse(time.DateOnly, date)
		if err != nil {
			continue
		}
		bar, err := raw.toBar(symbol, ts)
		if err != nil {
			continue
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars
}

func (b dailyBar) toBar(symbol string, ts time.Time) (domain.PriceBar, error) {
	var prices [4]float64
	for i, s := range []string{b.Open, b.High, b.Low, b.Close} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.PriceBar{}, err
		}
		prices[i] = v
	}
	volume, err := strconv.ParseUint(b.Volume, 10, 64)
	if err != nil {
		return domain.PriceBar{}, err
	}
	return domain.PriceBar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, nil
}

var _ feed.PriceFeed = (*Client)(nil)
