package quotes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockFeed records subscribe/unsubscribe calls
type mockFeed struct {
	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
}

func (m *mockFeed) Subscribe(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, symbol)
}

func (m *mockFeed) Unsubscribe(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, symbol)
}

func TestRegistryRefcounting(t *testing.T) {
	registry := NewInterestRegistry()

	registry.Add([]string{"AAPL", "MSFT"})
	registry.Add([]string{"AAPL"})

	assert.Equal(t, 2, registry.WatcherCount("AAPL"))
	assert.Equal(t, 1, registry.WatcherCount("MSFT"))
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, registry.Snapshot())

	registry.Remove([]string{"AAPL"})
	assert.Equal(t, 1, registry.WatcherCount("AAPL"))
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, registry.Snapshot())

	registry.Remove([]string{"AAPL", "MSFT"})
	assert.Equal(t, 0, registry.WatcherCount("AAPL"))
	assert.Empty(t, registry.Snapshot())
}

func TestRegistryNotifiesFeedOnTransitions(t *testing.T) {
	registry := NewInterestRegistry()
	feed := &mockFeed{}
	registry.SetLiveFeed(feed)

	registry.Add([]string{"AAPL"})
	registry.Add([]string{"AAPL"})
	assert.Equal(t, []string{"AAPL"}, feed.subscribed, "only the 0->1 transition subscribes")

	registry.Remove([]string{"AAPL"})
	assert.Empty(t, feed.unsubscribed, "still one watcher left")

	registry.Remove([]string{"AAPL"})
	assert.Equal(t, []string{"AAPL"}, feed.unsubscribed)
}

func TestRegistryLateFeedCatchesUp(t *testing.T) {
	registry := NewInterestRegistry()
	registry.Add([]string{"AAPL", "MSFT"})

	feed := &mockFeed{}
	registry.SetLiveFeed(feed)

	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, feed.subscribed)
}

func TestRegistryRemoveUnknownSymbolIsNoop(t *testing.T) {
	registry := NewInterestRegistry()
	feed := &mockFeed{}
	registry.SetLiveFeed(feed)

	registry.Remove([]string{"AAPL"})
	assert.Empty(t, feed.unsubscribed)
}
