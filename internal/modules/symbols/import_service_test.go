package symbols

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/clients/yahoo"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLister serves canned screener pages
type mockLister struct {
	pages   [][]yahoo.SymbolListing
	total   int
	err     error
	failAt  int // page index to fail on, -1 never
	calls   atomic.Int64
	release chan struct{} // when set, ListSymbols blocks until closed
}

func (m *mockLister) ListSymbols(ctx context.Context, scrID string, start, count int) (*yahoo.SymbolPage, error) {
	call := int(m.calls.Add(1)) - 1

	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil && call == m.failAt {
		return nil, m.err
	}

	page := start / count
	if page >= len(m.pages) {
		return &yahoo.SymbolPage{Total: m.total}, nil
	}
	return &yahoo.SymbolPage{Symbols: m.pages[page], Total: m.total}, nil
}

func newImportService(t *testing.T, lister SymbolLister) (*ImportService, *Repository) {
	t.Helper()

	repo := newSymbolsRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewImportService(repo, lister, nil, "most_actives", 2, 10, time.Millisecond, log)
	return service, repo
}

func waitForImport(t *testing.T, service *ImportService) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for service.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("import did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestImportPagesThroughListing(t *testing.T) {
	lister := &mockLister{
		pages: [][]yahoo.SymbolListing{
			{{Ticker: "AAPL", Name: "Apple"}, {Ticker: "MSFT", Name: "Microsoft"}},
			{{Ticker: "GOOG", Name: "Alphabet"}},
		},
		total:  3,
		failAt: -1,
	}
	service, repo := newImportService(t, lister)

	require.NoError(t, service.Start(context.Background()))
	waitForImport(t, service)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	progress := service.Progress()
	assert.False(t, progress.Running)
	assert.Equal(t, 3, progress.Imported)
	assert.Equal(t, 2, progress.PagesLoaded)
	assert.Equal(t, 3, progress.Total)
	assert.Empty(t, progress.LastError)
	assert.NotNil(t, progress.FinishedAt)
}

func TestImportSingleFlight(t *testing.T) {
	lister := &mockLister{
		pages:   [][]yahoo.SymbolListing{{{Ticker: "AAPL"}}},
		total:   1,
		failAt:  -1,
		release: make(chan struct{}),
	}
	service, _ := newImportService(t, lister)

	require.NoError(t, service.Start(context.Background()))

	// While the first run is blocked on the upstream, every other start
	// must lose the CAS
	var wg sync.WaitGroup
	var rejected atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := service.Start(context.Background()); errors.Is(err, domain.ErrImportRunning) {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), rejected.Load())

	close(lister.release)
	waitForImport(t, service)

	// A finished run frees the flag for the next import
	lister.release = nil
	require.NoError(t, service.Start(context.Background()))
	waitForImport(t, service)
}

func TestImportAbortsOnPageFailure(t *testing.T) {
	lister := &mockLister{
		pages: [][]yahoo.SymbolListing{
			{{Ticker: "AAPL"}, {Ticker: "MSFT"}},
			{{Ticker: "GOOG"}},
		},
		total:  4,
		err:    errors.New("upstream down"),
		failAt: 1,
	}
	service, repo := newImportService(t, lister)

	require.NoError(t, service.Start(context.Background()))
	waitForImport(t, service)

	// First page's rows stay, the run records the failure
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	progress := service.Progress()
	assert.Contains(t, progress.LastError, "upstream down")
	assert.Equal(t, 2, progress.Imported)
}

func TestImportStopsAtMaxPages(t *testing.T) {
	pages := make([][]yahoo.SymbolListing, 20)
	for i := range pages {
		pages[i] = []yahoo.SymbolListing{
			{Ticker: "T" + string(rune('A'+i))},
			{Ticker: "U" + string(rune('A'+i))},
		}
	}
	lister := &mockLister{pages: pages, total: 40, failAt: -1}

	repo := newSymbolsRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewImportService(repo, lister, nil, "most_actives", 2, 3, time.Millisecond, log)

	require.NoError(t, service.Start(context.Background()))
	waitForImport(t, service)

	progress := service.Progress()
	assert.Equal(t, 3, progress.PagesLoaded)
	assert.Equal(t, 6, progress.Imported)
}
