// Package newsapi fetches symbol news from newsapi.org and scores it with
// the lexicon sentiment analyzer.
package newsapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/sentiment"
)

// DefaultBaseURL is the NewsAPI v2 root.
const DefaultBaseURL = "https://newsapi.org/v2"

// Client implements feed.NewsFeed over the /everything endpoint.
type Client struct {
	client   *resty.Client
	baseURL  string
	analyzer *sentiment.Analyzer
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, analyzer *sentiment.Analyzer, opts ...func(*resty.Client)) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("news api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer()
	}

	client := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Key", apiKey).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	for _, opt := range opts {
		opt(client)
	}

	return &Client{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		analyzer: analyzer,
	}, nil
}

// Query builds the search expression for a symbol.
func Query(symbol string) string {
	return fmt.Sprintf("(%s OR stocks OR trading)", symbol)
}

// FetchNews implements feed.NewsFeed.
func (c *Client) FetchNews(ctx context.Context, symbol string, since time.Time) (items []domain.NewsItem, err error) {
	began := time.Now()
	defer func() {
		observability.RecordFeedFetch("newsapi", time.Since(began).Seconds(), err)
	}()

	var payload everythingResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        Query(symbol),
			"from":     since.UTC().Format(time.RFC3339),
			"sortBy":   "publishedAt",
			"language": "en",
		}).
		SetResult(&payload).
		SetError(&payload).
		Get(c.baseURL + "/everything")
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	if resp.StatusCode() >= 400 || payload.Status == "error" {
		if payload.Message != "" {
			return nil, fmt.Errorf("news api %s: %s", payload.Code, payload.Message)
		}
		return nil, fmt.Errorf("news api responded with status %d", resp.StatusCode())
	}

	items = make([]domain.NewsItem, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil || strings.TrimSpace(a.URL) == "" {
			// Skip malformed records while allowing the rest to be processed.
			continue
		}
		items = append(items, domain.NewsItem{
			Symbol:      symbol,
			Headline:    strings.TrimSpace(a.Title),
			Summary:     strings.TrimSpace(a.Description),
			Source:      strings.TrimSpace(a.Source.Name),
			URL:         strings.TrimSpace(a.URL),
			PublishedAt: publishedAt.UTC(),
			Sentiment:   c.analyzer.Score(a.Title + " " + a.Description),
		})
	}

	return feed.FilterNews(items, since), nil
}

var _ feed.NewsFeed = (*Client)(nil)
