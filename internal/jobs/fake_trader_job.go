package jobs

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/aristath/papertrade/internal/modules/trading"
	"github.com/aristath/papertrade/internal/modules/users"
)

// TradeExecutor places orders for the fake traders
type TradeExecutor interface {
	ExecuteBuy(ctx context.Context, userID int64, ticker string, shares decimal.Decimal, expectedPrice *decimal.Decimal) (*trading.Transaction, error)
	ExecuteSell(ctx context.Context, userID int64, ticker string, shares decimal.Decimal, expectedPrice *decimal.Decimal) (*trading.Transaction, error)
}

// SymbolLister supplies the tradable universe
type SymbolLister interface {
	ListEnabled() ([]symbols.Symbol, error)
}

// FakeTraderJob places random orders for the fake users so portfolios and
// the activity feed stay alive without real traffic. Orders go through the
// regular trading service and are rejected under the same rules, a fake
// trader runs out of cash like anyone else.
type FakeTraderJob struct {
	users     *users.Repository
	symbols   SymbolLister
	positions *portfolio.PositionRepository
	trader    TradeExecutor
	rng       *rand.Rand
	log       zerolog.Logger
}

// NewFakeTraderJob creates a fake trader job
func NewFakeTraderJob(
	userRepo *users.Repository,
	symbolLister SymbolLister,
	positionRepo *portfolio.PositionRepository,
	trader TradeExecutor,
	log zerolog.Logger,
) *FakeTraderJob {
	return &FakeTraderJob{
		users:     userRepo,
		symbols:   symbolLister,
		positions: positionRepo,
		trader:    trader,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log.With().Str("job", "fake_trader").Logger(),
	}
}

// Run gives each fake user a chance to place one order
func (j *FakeTraderJob) Run() error {
	fakes, err := j.users.ListFake()
	if err != nil {
		return err
	}
	if len(fakes) == 0 {
		return nil
	}

	enabled, err := j.symbols.ListEnabled()
	if err != nil {
		return err
	}
	if len(enabled) == 0 {
		j.log.Debug().Msg("No enabled symbols, skipping fake trades")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	executed := 0
	for _, user := range fakes {
		// Each trader sits out roughly half the runs
		if j.rng.Intn(2) == 0 {
			continue
		}

		if j.trade(ctx, user.ID, enabled) {
			executed++
		}
	}

	if executed > 0 {
		j.log.Info().
			Int("trades", executed).
			Int("traders", len(fakes)).
			Msg("Fake trades executed")
	}

	return nil
}

// Name returns the job name for scheduling and logging
func (j *FakeTraderJob) Name() string {
	return "fake_trader"
}

// trade places one order for the user. Returns true when the order filled.
func (j *FakeTraderJob) trade(ctx context.Context, userID int64, enabled []symbols.Symbol) bool {
	held, err := j.positions.ListByUser(userID)
	if err != nil {
		j.log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to list positions")
		return false
	}

	sell := len(held) > 0 && j.rng.Intn(2) == 0

	var txn *trading.Transaction
	if sell {
		pos := held[j.rng.Intn(len(held))]
		shares := pos.Shares
		if j.rng.Intn(2) == 0 && shares.GreaterThan(decimal.NewFromInt(1)) {
			shares = shares.Div(decimal.NewFromInt(2)).Round(4)
		}
		txn, err = j.trader.ExecuteSell(ctx, userID, pos.Ticker, shares, nil)
	} else {
		symbol := enabled[j.rng.Intn(len(enabled))]
		shares := decimal.NewFromInt(int64(1 + j.rng.Intn(10)))
		txn, err = j.trader.ExecuteBuy(ctx, userID, symbol.Ticker, shares, nil)
	}

	if err != nil {
		// Rejections are expected, insufficient funds included
		j.log.Debug().Err(err).Int64("user_id", userID).Msg("Fake trade rejected")
		return false
	}

	j.log.Debug().
		Int64("user_id", userID).
		Str("side", txn.Side).
		Str("ticker", txn.Ticker).
		Str("shares", txn.Shares.String()).
		Msg("Fake trade executed")

	return true
}
