// Package trading executes simulated buy and sell orders against wallets and
// portfolios, and keeps the immutable transaction ledger.
package trading

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Transaction is one executed trade. Rows are immutable once written;
// corrections happen through compensating trades, never updates.
type Transaction struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"user_id"`
	Ticker     string           `json:"ticker"`
	Side       string           `json:"side"`
	Shares     decimal.Decimal  `json:"shares"`
	Price      decimal.Decimal  `json:"price"`
	Amount     decimal.Decimal  `json:"amount"`
	RealizedPL *decimal.Decimal `json:"realized_pl"` // sells only, nil without lot history
	OrderID    string           `json:"order_id"`
	ExecutedAt time.Time        `json:"executed_at"`
}

// ListFilter narrows transaction history queries. Zero values mean
// no filtering; Limit 0 falls back to the repository default.
type ListFilter struct {
	Ticker string
	Side   string
	Limit  int
}
