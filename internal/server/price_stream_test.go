package server

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/aristath/papertrade/internal/quotes"
)

type stubSymbols struct {
	known map[string]bool // ticker -> enabled
}

func (s *stubSymbols) Get(ticker string) (*symbols.Symbol, error) {
	enabled, ok := s.known[ticker]
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}
	return &symbols.Symbol{Ticker: ticker, Name: ticker + " Inc", Enabled: enabled}, nil
}

type stubProvider struct {
	prices map[string]float64
}

func (p *stubProvider) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	price, ok := p.prices[symbol]
	if !ok {
		return nil, domain.ErrPriceUnavailable
	}
	return &domain.Quote{Symbol: symbol, Price: price, Timestamp: time.Now().Unix()}, nil
}

type streamFixture struct {
	handler  *PriceStreamHandler
	registry *quotes.InterestRegistry
	bus      *events.Bus
	service  *quotes.Service
}

func setupPriceStream(t *testing.T) *streamFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE quotes (
			symbol TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	cache := quotes.NewCache(db, 30*time.Second, log)
	provider := &stubProvider{prices: map[string]float64{"AAPL": 187.44, "MSFT": 410.10}}
	service := quotes.NewService(provider, cache, bus, log)
	registry := quotes.NewInterestRegistry()

	catalog := &stubSymbols{known: map[string]bool{"AAPL": true, "MSFT": true, "OLDCO": false}}
	handler := NewPriceStreamHandler(service, catalog, registry, bus, log)

	return &streamFixture{handler: handler, registry: registry, bus: bus, service: service}
}

func TestParseStreamSymbols(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "simple", raw: "AAPL,MSFT", want: []string{"AAPL", "MSFT"}},
		{name: "trims and uppercases", raw: " aapl , msft ", want: []string{"AAPL", "MSFT"}},
		{name: "drops empties", raw: "AAPL,,MSFT,", want: []string{"AAPL", "MSFT"}},
		{name: "deduplicates", raw: "AAPL,aapl,AAPL", want: []string{"AAPL"}},
		{name: "empty input", raw: "", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseStreamSymbols(tc.raw))
		})
	}
}

func TestStreamRejectsBadRequests(t *testing.T) {
	f := setupPriceStream(t)

	t.Run("no symbols", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/prices", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("over the cap", func(t *testing.T) {
		many := make([]string, maxStreamSymbols+1)
		for i := range many {
			many[i] = fmt.Sprintf("SYM%d", i)
		}
		url := "/api/stream/prices?symbols=" + strings.Join(many, ",")

		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("nothing valid survives", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stream/prices?symbols=NOPE,OLDCO", nil)
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, f.handler.ConnectionCount())
	})
}

type sseEvent struct {
	Name string
	Data map[string]interface{}
}

// readSSE parses named events off the wire into a channel
func readSSE(t *testing.T, body *bufio.Reader, out chan<- sseEvent) {
	t.Helper()

	var name string
	for {
		line, err := body.ReadString('\n')
		if err != nil {
			close(out)
			return
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err != nil {
				continue
			}
			out <- sseEvent{Name: name, Data: data}
		}
	}
}

func nextEvent(t *testing.T, ch <-chan sseEvent) sseEvent {
	t.Helper()

	select {
	case e, ok := <-ch:
		require.True(t, ok, "stream closed before expected event")
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return sseEvent{}
	}
}

func TestStreamSnapshotAndLiveUpdates(t *testing.T) {
	f := setupPriceStream(t)

	srv := httptest.NewServer(http.HandlerFunc(f.handler.ServeHTTP))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/stream/prices?symbols=AAPL,NOPE", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	eventCh := make(chan sseEvent, 16)
	go readSSE(t, bufio.NewReader(resp.Body), eventCh)

	// Rejected symbol first, then the snapshot for the survivor.
	errEvent := nextEvent(t, eventCh)
	assert.Equal(t, "error", errEvent.Name)
	assert.Equal(t, "NOPE", errEvent.Data["symbol"])

	snapshot := nextEvent(t, eventCh)
	assert.Equal(t, "price", snapshot.Name)
	assert.Equal(t, "AAPL", snapshot.Data["symbol"])
	assert.Equal(t, 187.44, snapshot.Data["price"])

	// Only the watched symbol is registered.
	assert.Equal(t, 1, f.registry.WatcherCount("AAPL"))
	assert.Equal(t, 0, f.registry.WatcherCount("NOPE"))

	// A bus emission for the watched symbol reaches the client; one for an
	// unwatched symbol never does. The cold-cache snapshot fetch also emits,
	// so drain until the explicit tick arrives, checking every event on the
	// way is for the watched symbol.
	f.bus.Emit(events.PriceUpdated, "quotes", map[string]interface{}{
		"symbol": "MSFT", "price": 411.00,
	})
	f.bus.Emit(events.PriceUpdated, "quotes", map[string]interface{}{
		"symbol": "AAPL", "price": 188.10,
	})

	var live sseEvent
	for i := 0; i < 5; i++ {
		live = nextEvent(t, eventCh)
		require.Equal(t, "price", live.Name)
		require.Equal(t, "AAPL", live.Data["symbol"])
		if live.Data["price"] == 188.10 {
			break
		}
	}
	assert.Equal(t, 188.10, live.Data["price"])

	// Disconnect releases the registry and the connection slot.
	cancel()
	require.Eventually(t, func() bool {
		return f.handler.ConnectionCount() == 0 && f.registry.WatcherCount("AAPL") == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStreamSendsErrorWhenQuoteMissing(t *testing.T) {
	f := setupPriceStream(t)

	// GONE is in the catalog but the provider has no price for it.
	f.handler.symbols.(*stubSymbols).known["GONE"] = true

	srv := httptest.NewServer(http.HandlerFunc(f.handler.ServeHTTP))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/stream/prices?symbols=GONE", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	eventCh := make(chan sseEvent, 16)
	go readSSE(t, bufio.NewReader(resp.Body), eventCh)

	e := nextEvent(t, eventCh)
	assert.Equal(t, "error", e.Name)
	assert.Equal(t, "GONE", e.Data["symbol"])
	assert.Equal(t, "quote unavailable", e.Data["error"])
}
