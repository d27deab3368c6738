package quotes

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider returns canned quotes and counts calls
type mockProvider struct {
	calls  atomic.Int64
	quote  *domain.Quote
	err    error
}

func (m *mockProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	q := *m.quote
	q.Symbol = symbol
	return &q, nil
}

func setupService(t *testing.T, provider Provider) (*Service, *events.Bus) {
	t.Helper()

	db := setupCacheDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	cache := NewCache(db, 30*time.Second, log)
	bus := events.NewBus(log)
	return NewService(provider, cache, bus, log), bus
}

func TestGetQuoteFetchesAndCaches(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{Price: 187.44, PrevClose: 186.00}}
	service, _ := setupService(t, provider)

	quote, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, 187.44, quote.Price)

	// Second lookup is served from cache
	_, err = service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), provider.calls.Load())
}

func TestGetQuotePropagatesProviderError(t *testing.T) {
	provider := &mockProvider{err: domain.ErrPriceUnavailable}
	service, _ := setupService(t, provider)

	_, err := service.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestRefreshBypassesFreshCache(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{Price: 187.44}}
	service, _ := setupService(t, provider)

	_, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	_, err = service.Refresh(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), provider.calls.Load())
}

func TestPublishEmitsOnlyOnPriceChange(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{Price: 187.44}}
	service, bus := setupService(t, provider)

	received := make(chan *events.Event, 10)
	bus.Subscribe(events.PriceUpdated, func(e *events.Event) {
		received <- e
	})

	// First fetch: no previous entry, counts as a change
	_, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, "AAPL", e.Data["symbol"])
	case <-time.After(time.Second):
		t.Fatal("expected PRICE_UPDATED event")
	}

	// Same price again: no event
	_, err = service.Refresh(context.Background(), "AAPL")
	require.NoError(t, err)

	select {
	case <-received:
		t.Fatal("unchanged price should not emit")
	case <-time.After(100 * time.Millisecond):
	}

	// Moved price: event again
	provider.quote = &domain.Quote{Price: 188.02}
	_, err = service.Refresh(context.Background(), "AAPL")
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, 188.02, e.Data["price"])
	case <-time.After(time.Second):
		t.Fatal("expected PRICE_UPDATED event after move")
	}
}

func TestPutLiveMergesSessionFields(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{
		Price:     187.44,
		Open:      185.00,
		High:      188.12,
		Low:       184.90,
		PrevClose: 186.00,
	}}
	service, _ := setupService(t, provider)

	_, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	// A live tick carries only price and timestamp
	service.PutLive(domain.Quote{Symbol: "AAPL", Price: 189.00, Timestamp: time.Now().Unix()})

	quote, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 189.00, quote.Price)
	assert.Equal(t, 185.00, quote.Open)
	assert.Equal(t, 186.00, quote.PrevClose)
	// New price above the session high extends it
	assert.Equal(t, 189.00, quote.High)
	assert.Equal(t, 184.90, quote.Low)
	// Change recomputed against previous close
	assert.InDelta(t, 3.00, quote.Change, 0.0001)
}

func TestPutLiveIgnoresEmptySymbol(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{Price: 187.44}}
	service, _ := setupService(t, provider)

	service.PutLive(domain.Quote{Price: 1.0})

	got, err := service.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 187.44, got.Price)
}

func TestGetQuoteCacheErrorFallsThrough(t *testing.T) {
	provider := &mockProvider{quote: &domain.Quote{Price: 187.44}}
	service, _ := setupService(t, provider)

	// Unknown provider failure propagates untouched
	provider.err = errors.New("upstream exploded")
	_, err := service.Refresh(context.Background(), "AAPL")
	assert.Error(t, err)
}
