package trading

import "github.com/shopspring/decimal"

// lot is an open parcel of shares left over from one BUY
type lot struct {
	shares decimal.Decimal
	price  decimal.Decimal
}

// realizedPL computes the FIFO profit for selling quantity shares at
// salePrice, given the user's full transaction history for the ticker in
// execution order.
//
// The history is replayed first: each BUY opens a lot, each prior SELL
// consumes lots oldest-first without booking profit (their profit was booked
// when they executed). The current sale then consumes the remaining lots
// oldest-first, summing (salePrice - lotPrice) * consumed per lot.
//
// Returns nil when the open lots cannot cover the sold quantity, which
// happens when the position predates the recorded history.
func realizedPL(history []Transaction, quantity, salePrice decimal.Decimal) *decimal.Decimal {
	var lots []lot
	for _, txn := range history {
		switch txn.Side {
		case SideBuy:
			lots = append(lots, lot{shares: txn.Shares, price: txn.Price})
		case SideSell:
			lots, _ = consumeLots(lots, txn.Shares, nil, decimal.Zero)
		}
	}

	var profit decimal.Decimal
	_, uncovered := consumeLots(lots, quantity, &profit, salePrice)
	if uncovered.IsPositive() {
		return nil
	}

	profit = profit.Round(2)
	return &profit
}

// consumeLots takes shares out of the open lots oldest-first and returns the
// surviving lots plus any quantity the lots could not cover. When profit is
// non-nil, (salePrice - lotPrice) * consumed is accumulated into it.
func consumeLots(lots []lot, quantity decimal.Decimal, profit *decimal.Decimal, salePrice decimal.Decimal) ([]lot, decimal.Decimal) {
	remaining := quantity
	for len(lots) > 0 && remaining.IsPositive() {
		consume := decimal.Min(lots[0].shares, remaining)
		if profit != nil {
			*profit = profit.Add(salePrice.Sub(lots[0].price).Mul(consume))
		}
		lots[0].shares = lots[0].shares.Sub(consume)
		remaining = remaining.Sub(consume)
		if lots[0].shares.IsZero() {
			lots = lots[1:]
		}
	}
	return lots, remaining
}
