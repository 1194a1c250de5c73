package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-lab/internal/storage/memory"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const newsFrame = `{"type":"news","data":[
	{"category":"company","datetime":1717423200,"headline":"Apple shares surge","id":1,"related":"AAPL","source":"Reuters","summary":"Record profit.","url":"https://n.example/1"},
	{"category":"company","datetime":1717423260,"headline":"Chip stocks slump","id":2,"related":"NVDA,AAPL","source":"Bloomberg","summary":"","url":"https://n.example/2"},
	{"category":"company","datetime":0,"headline":"bad","id":3,"related":"AAPL","source":"x","summary":"","url":"https://n.example/3"}
]}`

func TestStream_Run(t *testing.T) {
	var mu sync.Mutex
	var subscribed []string
	var token string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		token = r.URL.Query().Get("token")
		mu.Unlock()
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		for i := 0; i < 2; i++ {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var sub subscribeMessage
			if err := json.Unmarshal(msg, &sub); err != nil {
				t.Errorf("unmarshal subscribe: %v", err)
				return
			}
			mu.Lock()
			subscribed = append(subscribed, sub.Type+":"+sub.Symbol)
			mu.Unlock()
		}

		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		c.WriteMessage(websocket.TextMessage, []byte(newsFrame))

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	store := memory.NewNewsStore()
	stream, err := NewStream(StreamOptions{
		Endpoint: "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:    "tok",
		Store:    store,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx, []string{"AAPL", "MSFT"}) }()

	since := time.Unix(0, 0)
	require.Eventually(t, func() bool {
		items, _ := store.GetSince(context.Background(), "AAPL", since)
		return len(items) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	assert.Equal(t, []string{"subscribe-news:AAPL", "subscribe-news:MSFT"}, subscribed)
	assert.Equal(t, "tok", token)
	mu.Unlock()

	items, err := store.GetSince(context.Background(), "AAPL", since)
	require.NoError(t, err)
	assert.Equal(t, "https://n.example/2", items[0].URL, "newest first")
	assert.Less(t, items[0].Sentiment, 0.0)
	assert.Greater(t, items[1].Sentiment, 0.0)

	// NVDA was not subscribed
	nvda, _ := store.GetSince(context.Background(), "NVDA", since)
	assert.Empty(t, nvda)
}

func TestStream_HandleMessageDuplicates(t *testing.T) {
	store := memory.NewNewsStore()
	stream, err := NewStream(StreamOptions{Token: "tok", Store: store})
	require.NoError(t, err)

	wanted := map[string]struct{}{"AAPL": {}}
	n, err := stream.handleMessage(context.Background(), []byte(newsFrame), wanted)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = stream.handleMessage(context.Background(), []byte(newsFrame), wanted)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicates are skipped")

	_, err = stream.handleMessage(context.Background(), []byte(`{"type":"error","msg":"Invalid token"}`), wanted)
	assert.ErrorContains(t, err, "Invalid token")
}

func TestNewStream_Validation(t *testing.T) {
	_, err := NewStream(StreamOptions{Store: memory.NewNewsStore()})
	assert.Error(t, err)

	_, err = NewStream(StreamOptions{Token: "tok"})
	assert.Error(t, err)
}

func TestNewStream_ZeroConfigUsesDefaults(t *testing.T) {
	stream, err := NewStream(StreamOptions{Token: "tok", Store: memory.NewNewsStore(), Config: &StreamConfig{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultStreamConfig(), stream.config)

	stream, err = NewStream(StreamOptions{
		Token:  "tok",
		Store:  memory.NewNewsStore(),
		Config: &StreamConfig{ReconnectDelay: time.Minute, MaxReconnectDelay: time.Second},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, stream.config.MaxReconnectDelay)
}

func TestBackoff_DoublesAndResets(t *testing.T) {
	b := newBackoff(10*time.Millisecond, 35*time.Millisecond)

	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.Equal(t, 20*time.Millisecond, b.Next())
	assert.Equal(t, 35*time.Millisecond, b.Next())
	assert.Equal(t, 35*time.Millisecond, b.Next())

	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.Next())
}

func TestStream_ReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		connections++
		mu.Unlock()
		// Read the subscription, then drop the connection.
		c.ReadMessage()
		c.Close()
	}))
	defer server.Close()

	stream, err := NewStream(StreamOptions{
		Endpoint: "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:    "tok",
		Store:    memory.NewNewsStore(),
		Config: &StreamConfig{
			ReconnectDelay:    10 * time.Millisecond,
			MaxReconnectDelay: 20 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx, []string{"AAPL"}) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connections >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
