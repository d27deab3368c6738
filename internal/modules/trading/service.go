package trading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/aristath/papertrade/internal/modules/wallet"
)

// SymbolGetter looks up tradable symbols
type SymbolGetter interface {
	Get(ticker string) (*symbols.Symbol, error)
}

// QuoteGetter provides current prices for trade execution
type QuoteGetter interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// Service executes simulated trades. Wallet debit/credit, position upsert
// and the ledger insert happen inside one core.db transaction, so a
// rejection at any step leaves no partial writes.
type Service struct {
	coreDB       *sql.DB
	transactions *TransactionRepository
	positions    *portfolio.PositionRepository
	wallets      *wallet.Repository
	symbols      SymbolGetter
	quotes       QuoteGetter
	eventManager *events.Manager
	tolerance    decimal.Decimal
	log          zerolog.Logger
}

// NewService creates a new trading service. slippageTolerance is the maximum
// |quote - expected| / expected fraction accepted before an order with an
// expected price is rejected.
func NewService(
	coreDB *sql.DB,
	transactions *TransactionRepository,
	positions *portfolio.PositionRepository,
	wallets *wallet.Repository,
	symbolGetter SymbolGetter,
	quotes QuoteGetter,
	eventManager *events.Manager,
	slippageTolerance float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		coreDB:       coreDB,
		transactions: transactions,
		positions:    positions,
		wallets:      wallets,
		symbols:      symbolGetter,
		quotes:       quotes,
		eventManager: eventManager,
		tolerance:    decimal.NewFromFloat(slippageTolerance),
		log:          log.With().Str("service", "trading").Logger(),
	}
}

// ExecuteBuy buys shares of a ticker at the current quote. The wallet must
// cover price * shares; the position's average cost is re-weighted across
// the old and new shares.
func (s *Service) ExecuteBuy(ctx context.Context, userID int64, ticker string, shares decimal.Decimal, expectedPrice *decimal.Decimal) (*Transaction, error) {
	price, err := s.executionPrice(ctx, ticker, shares, expectedPrice)
	if err != nil {
		return nil, err
	}

	cost := price.Mul(shares).Round(2)
	var txn *Transaction

	err = database.WithTransaction(s.coreDB, func(tx *sql.Tx) error {
		wlt, err := s.wallets.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if wlt.Balance.LessThan(cost) {
			return fmt.Errorf("%w: order costs %s, balance is %s",
				domain.ErrInsufficientFunds, cost.StringFixed(2), wlt.Balance.StringFixed(2))
		}
		if err := s.wallets.UpdateBalanceTx(tx, userID, wlt.Balance.Sub(cost)); err != nil {
			return err
		}

		position, err := s.positions.GetTx(tx, userID, ticker)
		if err != nil {
			return err
		}

		newShares := shares
		newAvgCost := price
		if position != nil {
			newShares = position.Shares.Add(shares)
			newAvgCost = position.Shares.Mul(position.AvgCost).
				Add(shares.Mul(price)).
				Div(newShares).Round(4)
		}
		if err := s.positions.UpsertTx(tx, userID, ticker, newShares, newAvgCost); err != nil {
			return err
		}

		txn = &Transaction{
			UserID:     userID,
			Ticker:     normalizeTicker(ticker),
			Side:       SideBuy,
			Shares:     shares,
			Price:      price,
			Amount:     cost,
			OrderID:    uuid.NewString(),
			ExecutedAt: time.Now(),
		}
		return s.transactions.CreateTx(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logTrade(txn)
	s.emitTradeExecuted(txn)
	return txn, nil
}

// ExecuteSell sells shares of a ticker at the current quote. The position
// must cover the sold quantity; proceeds are credited to the wallet and the
// FIFO realized profit is recorded on the transaction.
func (s *Service) ExecuteSell(ctx context.Context, userID int64, ticker string, shares decimal.Decimal, expectedPrice *decimal.Decimal) (*Transaction, error) {
	price, err := s.executionPrice(ctx, ticker, shares, expectedPrice)
	if err != nil {
		return nil, err
	}

	proceeds := price.Mul(shares).Round(2)
	var txn *Transaction

	err = database.WithTransaction(s.coreDB, func(tx *sql.Tx) error {
		position, err := s.positions.GetTx(tx, userID, ticker)
		if err != nil {
			return err
		}
		if position == nil {
			return fmt.Errorf("%w: no %s held", domain.ErrPositionNotFound, normalizeTicker(ticker))
		}
		if position.Shares.LessThan(shares) {
			return fmt.Errorf("%w: selling %s, holding %s",
				domain.ErrInsufficientShares, shares.StringFixed(4), position.Shares.StringFixed(4))
		}

		// History must be read before the new SELL row lands, so the
		// replay sees only prior trades
		history, err := s.transactions.ListForFIFOTx(tx, userID, ticker)
		if err != nil {
			return err
		}
		profit := realizedPL(history, shares, price)

		wlt, err := s.wallets.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if err := s.wallets.UpdateBalanceTx(tx, userID, wlt.Balance.Add(proceeds)); err != nil {
			return err
		}

		remaining := position.Shares.Sub(shares)
		if remaining.IsZero() {
			if err := s.positions.DeleteTx(tx, userID, ticker); err != nil {
				return err
			}
		} else {
			if err := s.positions.UpsertTx(tx, userID, ticker, remaining, position.AvgCost); err != nil {
				return err
			}
		}

		txn = &Transaction{
			UserID:     userID,
			Ticker:     normalizeTicker(ticker),
			Side:       SideSell,
			Shares:     shares,
			Price:      price,
			Amount:     proceeds,
			RealizedPL: profit,
			OrderID:    uuid.NewString(),
			ExecutedAt: time.Now(),
		}
		return s.transactions.CreateTx(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logTrade(txn)
	s.emitTradeExecuted(txn)
	return txn, nil
}

// History returns a user's transaction history, most recent first
func (s *Service) History(userID int64, filter ListFilter) ([]Transaction, error) {
	return s.transactions.ListByUser(userID, filter)
}

// executionPrice runs the shared pre-trade checks: positive quantity,
// known and enabled symbol, obtainable quote, and the optional slippage
// comparison against the caller's expected price.
func (s *Service) executionPrice(ctx context.Context, ticker string, shares decimal.Decimal, expectedPrice *decimal.Decimal) (decimal.Decimal, error) {
	if !shares.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: shares must be positive", domain.ErrInvalidQuantity)
	}

	symbol, err := s.symbols.Get(ticker)
	if err != nil {
		return decimal.Zero, err
	}
	if !symbol.Enabled {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrSymbolDisabled, symbol.Ticker)
	}

	quote, err := s.quotes.GetQuote(ctx, symbol.Ticker)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, err)
	}
	price := decimal.NewFromFloat(quote.Price)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s has no usable price", domain.ErrPriceUnavailable, symbol.Ticker)
	}

	if expectedPrice != nil && expectedPrice.IsPositive() {
		drift := price.Sub(*expectedPrice).Abs().Div(*expectedPrice)
		if drift.GreaterThan(s.tolerance) {
			return decimal.Zero, fmt.Errorf("%w: expected %s, market at %s",
				domain.ErrPriceMoved, expectedPrice.StringFixed(2), price.StringFixed(2))
		}
	}

	return price, nil
}

func (s *Service) logTrade(txn *Transaction) {
	event := s.log.Info().
		Int64("user_id", txn.UserID).
		Str("ticker", txn.Ticker).
		Str("side", txn.Side).
		Str("shares", txn.Shares.StringFixed(4)).
		Str("price", txn.Price.StringFixed(2)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("order_id", txn.OrderID)
	if txn.RealizedPL != nil {
		event = event.Str("realized_pl", txn.RealizedPL.StringFixed(2))
	}
	event.Msg("Trade executed")
}

func (s *Service) emitTradeExecuted(txn *Transaction) {
	if s.eventManager == nil {
		return
	}
	data := &events.TradeExecutedData{
		UserID:  txn.UserID,
		Ticker:  txn.Ticker,
		Side:    txn.Side,
		Shares:  txn.Shares.StringFixed(4),
		Price:   txn.Price.StringFixed(2),
		Amount:  txn.Amount.StringFixed(2),
		OrderID: txn.OrderID,
	}
	if txn.RealizedPL != nil {
		pl := txn.RealizedPL.StringFixed(2)
		data.RealizedPL = &pl
	}
	s.eventManager.EmitTyped(events.TradeExecuted, "trading", data)
}
