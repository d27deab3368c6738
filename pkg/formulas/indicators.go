// Package formulas provides the technical indicators and return statistics
// used by symbol analytics.
package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA returns the latest simple moving average over the given
// period, or nil when there is not enough data
func CalculateSMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return lastValid(talib.Sma(closes, period))
}

// CalculateEMA returns the latest exponential moving average over the given
// period, or nil when there is not enough data
func CalculateEMA(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return lastValid(talib.Ema(closes, period))
}

// CalculateRSI returns the latest Relative Strength Index.
//
//	RSI = 100 - (100 / (1 + RS)), RS = avg gain / avg loss over N periods
//
// Returns nil when fewer than period+1 closes are available.
func CalculateRSI(closes []float64, period int) *float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}
	return lastValid(talib.Rsi(closes, period))
}

// lastValid returns the last non-NaN value of an indicator series
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	last := series[len(series)-1]
	if isNaN(last) {
		return nil
	}
	return &last
}

func isNaN(f float64) bool {
	return f != f
}
