package quotes

import (
	"context"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/rs/zerolog"
)

// Provider fetches a quote from an upstream market data source
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Service answers quote lookups cache-first and publishes price changes on
// the event bus. Trading and portfolio valuation go through GetQuote; the
// poller and the live websocket feed go through Refresh and PutLive.
type Service struct {
	provider Provider
	cache    *Cache
	bus      *events.Bus
	log      zerolog.Logger
}

// NewService creates a quote service
func NewService(provider Provider, cache *Cache, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		bus:      bus,
		log:      log.With().Str("component", "quote_service").Logger(),
	}
}

// GetQuote returns a quote for the symbol, serving from cache while fresh
// and falling back to the upstream provider. Upstream failures surface to
// the caller; a trade must not execute against a price we could not get.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	cached, err := s.cache.Get(symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.publish(quote)
	return quote, nil
}

// Refresh fetches the symbol from upstream unconditionally, bypassing the
// cache. Used by the poll loop so that a fresh cache entry does not mask
// price movement between polls.
func (s *Service) Refresh(ctx context.Context, symbol string) (*domain.Quote, error) {
	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.publish(quote)
	return quote, nil
}

// PutLive ingests a trade tick from the live feed. Ticks only carry the last
// price, so session fields are merged from the previous cached quote.
func (s *Service) PutLive(quote domain.Quote) {
	if quote.Symbol == "" {
		return
	}
	s.publish(&quote)
}

// publish merges the quote with the previous cached entry, stores it, and
// emits PRICE_UPDATED when the price actually moved
func (s *Service) publish(quote *domain.Quote) {
	last, err := s.cache.Last(quote.Symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Quote cache read failed")
	}

	if last != nil {
		mergeSessionFields(quote, last)
	}
	recomputeChange(quote)

	changed := last == nil || last.Price != quote.Price

	if err := s.cache.Put(quote); err != nil {
		s.log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Quote cache write failed")
	}

	if changed && s.bus != nil {
		s.bus.Emit(events.PriceUpdated, "quotes", map[string]interface{}{
			"symbol":         quote.Symbol,
			"price":          quote.Price,
			"change":         quote.Change,
			"change_percent": quote.ChangePercent,
			"high":           quote.High,
			"low":            quote.Low,
			"timestamp":      quote.Timestamp,
		})
	}
}

// mergeSessionFields fills zero-valued session fields from the previous
// quote. Live ticks carry only symbol, price and timestamp.
func mergeSessionFields(quote, last *domain.Quote) {
	if quote.Open == 0 {
		quote.Open = last.Open
	}
	if quote.PrevClose == 0 {
		quote.PrevClose = last.PrevClose
	}
	if quote.High == 0 {
		quote.High = last.High
	}
	if quote.Price > quote.High {
		quote.High = quote.Price
	}
	if quote.Low == 0 {
		quote.Low = last.Low
	}
	if quote.Low == 0 || (quote.Price > 0 && quote.Price < quote.Low) {
		quote.Low = quote.Price
	}
}

// recomputeChange derives change and change percent from the previous close
// when it is known
func recomputeChange(quote *domain.Quote) {
	if quote.PrevClose == 0 {
		return
	}
	quote.Change = quote.Price - quote.PrevClose
	quote.ChangePercent = (quote.Change / quote.PrevClose) * 100
}
