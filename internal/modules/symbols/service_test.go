package symbols

import (
	"testing"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockUsageChecker reports fixed in-use answers per ticker
type mockUsageChecker struct {
	inUse map[string]bool
}

func (m *mockUsageChecker) TickerInUse(ticker string) (bool, error) {
	return m.inUse[ticker], nil
}

func TestSetEnabledChecksUsage(t *testing.T) {
	repo := newSymbolsRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	usage := &mockUsageChecker{inUse: map[string]bool{"AAPL": true}}
	service := NewService(repo, usage, log)

	require.NoError(t, repo.Upsert(&Symbol{Ticker: "AAPL"}))
	require.NoError(t, repo.Upsert(&Symbol{Ticker: "MSFT"}))

	// Disabling a held symbol is refused
	_, err := service.SetEnabled("AAPL", false)
	assert.ErrorIs(t, err, domain.ErrSymbolInUse)

	got, err := service.Get("AAPL")
	require.NoError(t, err)
	assert.True(t, got.Enabled, "refused disable must not change the flag")

	// Unreferenced symbols disable fine
	got, err = service.SetEnabled("MSFT", false)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	// Enabling is unconditional, even when in use
	got, err = service.SetEnabled("MSFT", true)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
}

func TestListEnabledOnly(t *testing.T) {
	repo := newSymbolsRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewService(repo, &mockUsageChecker{}, log)

	require.NoError(t, repo.Upsert(&Symbol{Ticker: "AAPL"}))
	require.NoError(t, repo.Upsert(&Symbol{Ticker: "MSFT"}))
	_, err := service.SetEnabled("MSFT", false)
	require.NoError(t, err)

	enabled, err := service.ListEnabled()
	require.NoError(t, err)
	assert.Len(t, enabled, 1)

	all, err := service.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
