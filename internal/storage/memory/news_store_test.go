package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

func TestNewsStore_InsertAndGetSince(t *testing.T) {
	store := NewNewsStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	items := []*domain.NewsItem{
		{Symbol: "AAPL", Headline: "old", URL: "https://n/1", PublishedAt: now.Add(-48 * time.Hour)},
		{Symbol: "AAPL", Headline: "older recent", URL: "https://n/2", PublishedAt: now.Add(-2 * time.Hour)},
		{Symbol: "AAPL", Headline: "newest", URL: "https://n/3", PublishedAt: now.Add(-1 * time.Hour)},
		{Symbol: "MSFT", Headline: "other", URL: "https://n/4", PublishedAt: now},
	}
	for _, n := range items {
		if err := store.Insert(ctx, n); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetSince(ctx, "AAPL", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetSince failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if result[0].Headline != "newest" {
		t.Errorf("Expected newest first, got %s", result[0].Headline)
	}
}

func TestNewsStore_DuplicateURL(t *testing.T) {
	store := NewNewsStore()
	ctx := context.Background()

	n := &domain.NewsItem{Symbol: "AAPL", URL: "https://n/1"}
	if err := store.Insert(ctx, n); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, n); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same URL under another symbol is a separate item
	if err := store.Insert(ctx, &domain.NewsItem{Symbol: "MSFT", URL: "https://n/1"}); err != nil {
		t.Errorf("Expected insert for different symbol to succeed, got %v", err)
	}
}

func TestNewsStore_InvalidInput(t *testing.T) {
	store := NewNewsStore()
	if err := store.Insert(context.Background(), &domain.NewsItem{Symbol: "AAPL"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
