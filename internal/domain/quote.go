// Package domain holds types and errors shared across modules.
package domain

import "time"

// Quote represents a market quote as delivered by an upstream provider.
// Values are wire-level floats; the trading engine converts to decimals
// at the execution boundary.
type Quote struct {
	Symbol        string  `json:"symbol" msgpack:"symbol"`
	Price         float64 `json:"price" msgpack:"price"`                   // Current/last price
	Open          float64 `json:"open" msgpack:"open"`                     // Day open
	High          float64 `json:"high" msgpack:"high"`                     // Day high
	Low           float64 `json:"low" msgpack:"low"`                       // Day low
	PrevClose     float64 `json:"prev_close" msgpack:"prev_close"`         // Previous session close
	Change        float64 `json:"change" msgpack:"change"`                 // Absolute change
	ChangePercent float64 `json:"change_percent" msgpack:"change_percent"` // Percentage change
	Timestamp     int64   `json:"timestamp" msgpack:"timestamp"`           // Unix seconds
}

// Age returns how old the quote is relative to now.
func (q *Quote) Age() time.Duration {
	return time.Since(time.Unix(q.Timestamp, 0))
}

// Candle represents one daily OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
