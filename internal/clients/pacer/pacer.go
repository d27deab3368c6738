// Package pacer enforces a minimum delay between successive upstream API
// calls. Free-tier market-data providers throttle aggressively, so every
// outbound client routes its requests through a shared Pacer.
package pacer

import (
	"context"
	"sync"
	"time"
)

// Pacer serializes callers and spaces their requests at least one interval
// apart. The zero interval disables pacing (used by tests).
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// New creates a pacer with the given minimum interval between requests.
func New(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the caller may issue the next request. Callers queue up
// on the internal mutex, so concurrent requests drain one per interval in
// arrival order. Returns early with the context error on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.last)
	if wait := p.interval - elapsed; wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.last = time.Now()
	return nil
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
