package symbols

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/papertrade/internal/clients/yahoo"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/rs/zerolog"
)

// SymbolLister pages through an upstream symbol listing. Satisfied by the
// yahoo client.
type SymbolLister interface {
	ListSymbols(ctx context.Context, scrID string, start, count int) (*yahoo.SymbolPage, error)
}

// ImportService pulls the screener listing page by page and upserts the
// catalog. Only one import runs at a time: the guard is a compare-and-swap
// on an atomic flag, so two concurrent starts can never both win.
type ImportService struct {
	repo         *Repository
	lister       SymbolLister
	eventManager *events.Manager

	scrID     string
	pageSize  int
	maxPages  int
	pageDelay time.Duration

	running  atomic.Bool
	mu       sync.Mutex
	progress ImportProgress

	log zerolog.Logger
}

// NewImportService creates an import service
func NewImportService(
	repo *Repository,
	lister SymbolLister,
	eventManager *events.Manager,
	scrID string,
	pageSize int,
	maxPages int,
	pageDelay time.Duration,
	log zerolog.Logger,
) *ImportService {
	if pageSize <= 0 {
		pageSize = 25
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &ImportService{
		repo:         repo,
		lister:       lister,
		eventManager: eventManager,
		scrID:        scrID,
		pageSize:     pageSize,
		maxPages:     maxPages,
		pageDelay:    pageDelay,
		log:          log.With().Str("service", "symbol_import").Logger(),
	}
}

// Start launches an import run in the background. A second start while one
// is running returns ErrImportRunning. The context should outlive the HTTP
// request that triggered the import.
func (s *ImportService) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return domain.ErrImportRunning
	}

	now := time.Now()
	s.mu.Lock()
	s.progress = ImportProgress{Running: true, StartedAt: &now}
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// IsRunning reports whether an import is in flight
func (s *ImportService) IsRunning() bool {
	return s.running.Load()
}

// Progress returns a snapshot of the current or last run
func (s *ImportService) Progress() ImportProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *ImportService) run(ctx context.Context) {
	defer s.running.Store(false)

	s.log.Info().Str("screener", s.scrID).Msg("Symbol import started")

	var imported, pages, total int
	start := 0

	for pages < s.maxPages {
		page, err := s.lister.ListSymbols(ctx, s.scrID, start, s.pageSize)
		if err != nil {
			// The client already retried transient failures; a page that
			// still fails aborts the run. Rows upserted so far stay.
			s.log.Error().Err(err).Int("page", pages).Msg("Symbol import aborted")
			s.finish(imported, pages, total, err)
			return
		}

		if len(page.Symbols) == 0 {
			break
		}

		for _, listing := range page.Symbols {
			if err := s.repo.Upsert(&Symbol{
				Ticker:   listing.Ticker,
				Name:     listing.Name,
				Exchange: listing.Exchange,
				Currency: listing.Currency,
			}); err != nil {
				s.log.Warn().Err(err).Str("ticker", listing.Ticker).Msg("Skipping symbol")
				continue
			}
			imported++
		}

		pages++
		total = page.Total
		start += s.pageSize

		s.mu.Lock()
		s.progress.PagesLoaded = pages
		s.progress.Imported = imported
		s.progress.Total = total
		s.mu.Unlock()

		if start >= page.Total {
			break
		}

		// Fixed delay between pages keeps the upstream happy
		select {
		case <-ctx.Done():
			s.finish(imported, pages, total, ctx.Err())
			return
		case <-time.After(s.pageDelay):
		}
	}

	s.finish(imported, pages, total, nil)

	if s.eventManager != nil {
		s.eventManager.Emit(events.SymbolsImported, "symbols", map[string]interface{}{
			"imported": imported,
			"pages":    pages,
		})
	}

	s.log.Info().Int("imported", imported).Int("pages", pages).Msg("Symbol import finished")
}

func (s *ImportService) finish(imported, pages, total int, err error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running = false
	s.progress.FinishedAt = &now
	s.progress.PagesLoaded = pages
	s.progress.Imported = imported
	s.progress.Total = total
	if err != nil {
		s.progress.LastError = err.Error()
	}
}
