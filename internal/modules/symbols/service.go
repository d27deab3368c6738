package symbols

import (
	"fmt"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// UsageChecker reports whether any position or transaction references a
// ticker. Satisfied by the trading side; declared here to keep the symbol
// catalog free of a dependency on trading internals.
type UsageChecker interface {
	TickerInUse(ticker string) (bool, error)
}

// Service provides symbol catalog operations
type Service struct {
	repo  *Repository
	usage UsageChecker
	log   zerolog.Logger
}

// NewService creates a new symbol service
func NewService(repo *Repository, usage UsageChecker, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		usage: usage,
		log:   log.With().Str("service", "symbols").Logger(),
	}
}

// Get returns a symbol by ticker
func (s *Service) Get(ticker string) (*Symbol, error) {
	return s.repo.GetByTicker(ticker)
}

// ListEnabled returns the tradable catalog
func (s *Service) ListEnabled() ([]Symbol, error) {
	return s.repo.List(true)
}

// ListAll returns the whole catalog including disabled symbols
func (s *Service) ListAll() ([]Symbol, error) {
	return s.repo.List(false)
}

// SetEnabled enables or disables a symbol for trading. Disabling a symbol
// that any portfolio or transaction still references is refused; history
// must stay resolvable. Enabling is unconditional.
func (s *Service) SetEnabled(ticker string, enabled bool) (*Symbol, error) {
	if !enabled && s.usage != nil {
		inUse, err := s.usage.TickerInUse(ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to check symbol usage: %w", err)
		}
		if inUse {
			return nil, domain.ErrSymbolInUse
		}
	}

	if err := s.repo.SetEnabled(ticker, enabled); err != nil {
		return nil, err
	}

	s.log.Info().Str("ticker", ticker).Bool("enabled", enabled).Msg("Symbol flag changed")
	return s.repo.GetByTicker(ticker)
}
