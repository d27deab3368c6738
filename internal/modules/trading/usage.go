package trading

import "github.com/aristath/papertrade/internal/modules/portfolio"

// UsageChecker reports whether a ticker is still referenced by any position
// or transaction. The symbol catalog refuses to disable referenced tickers
// so held and historical trades stay resolvable.
type UsageChecker struct {
	positions    *portfolio.PositionRepository
	transactions *TransactionRepository
}

// NewUsageChecker creates a usage checker over the position and transaction
// repositories
func NewUsageChecker(positions *portfolio.PositionRepository, transactions *TransactionRepository) *UsageChecker {
	return &UsageChecker{positions: positions, transactions: transactions}
}

// TickerInUse reports whether any user holds the ticker or has ever traded it
func (u *UsageChecker) TickerInUse(ticker string) (bool, error) {
	held, err := u.positions.ExistsForTicker(ticker)
	if err != nil || held {
		return held, err
	}
	return u.transactions.ExistsForTicker(ticker)
}
