package quotes

import "sync"

// LiveFeed receives subscribe/unsubscribe notifications when interest in a
// symbol starts or ends. The Finnhub websocket implements this; the registry
// works without one (polling only).
type LiveFeed interface {
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// InterestRegistry tracks how many stream clients care about each symbol.
// The poll loop only fetches symbols with at least one watcher, and the live
// feed is told on the 0->1 and 1->0 transitions so upstream subscriptions
// track real demand.
type InterestRegistry struct {
	mu     sync.Mutex
	counts map[string]int
	feed   LiveFeed
}

// NewInterestRegistry creates an empty registry
func NewInterestRegistry() *InterestRegistry {
	return &InterestRegistry{
		counts: make(map[string]int),
	}
}

// SetLiveFeed attaches a live feed. Symbols already watched are subscribed
// immediately so a feed started late catches up.
func (r *InterestRegistry) SetLiveFeed(feed LiveFeed) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.feed = feed
	if feed == nil {
		return
	}
	for symbol := range r.counts {
		feed.Subscribe(symbol)
	}
}

// Add registers interest in the given symbols
func (r *InterestRegistry) Add(symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, symbol := range symbols {
		r.counts[symbol]++
		if r.counts[symbol] == 1 && r.feed != nil {
			r.feed.Subscribe(symbol)
		}
	}
}

// Remove releases interest in the given symbols. Callers must pass the same
// set they passed to Add.
func (r *InterestRegistry) Remove(symbols []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, symbol := range symbols {
		count, ok := r.counts[symbol]
		if !ok {
			continue
		}
		if count <= 1 {
			delete(r.counts, symbol)
			if r.feed != nil {
				r.feed.Unsubscribe(symbol)
			}
		} else {
			r.counts[symbol] = count - 1
		}
	}
}

// Snapshot returns the symbols currently watched by at least one client
func (r *InterestRegistry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make([]string, 0, len(r.counts))
	for symbol := range r.counts {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// WatcherCount returns the number of watchers for a symbol
func (r *InterestRegistry) WatcherCount(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[symbol]
}
