package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// Poller periodically refreshes every watched symbol through the quote
// service. Price changes reach stream clients via the PRICE_UPDATED events
// the service emits; the poller itself only drives the fetch cadence.
type Poller struct {
	service  *Service
	registry *InterestRegistry
	interval time.Duration
	log      zerolog.Logger
}

// NewPoller creates a poller over the given registry
func NewPoller(service *Service, registry *InterestRegistry, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		service:  service,
		registry: registry,
		interval: interval,
		log:      log.With().Str("component", "quote_poller").Logger(),
	}
}

// Start runs the poll loop until the context is cancelled
func (p *Poller) Start(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Msg("Quote poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Quote poller stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	symbols := p.registry.Snapshot()
	if len(symbols) == 0 {
		return
	}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}

		_, err := p.service.Refresh(ctx, symbol)
		if err == nil {
			continue
		}

		// Rate limiting is expected under load; the next tick retries
		if errors.Is(err, domain.ErrRateLimited) {
			p.log.Debug().Str("symbol", symbol).Msg("Quote poll rate limited")
			return
		}
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote poll failed")
	}
}
