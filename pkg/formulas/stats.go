package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDaysPerYear is the conventional annualization factor for daily data
const tradingDaysPerYear = 252

// Mean calculates the arithmetic mean
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// CalculateReturns converts a price series to simple daily returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// AnnualizedVolatility is the standard deviation of daily returns scaled to
// a year of trading days
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(tradingDaysPerYear)
}

// CalculateSharpeRatio computes the annualized Sharpe ratio from daily
// returns. Returns nil when the series is too short or flat.
func CalculateSharpeRatio(dailyReturns []float64, riskFreeRate float64) *float64 {
	if len(dailyReturns) < 2 {
		return nil
	}

	stdDev := StdDev(dailyReturns)
	if stdDev == 0 {
		return nil
	}

	dailyRiskFree := riskFreeRate / tradingDaysPerYear
	sharpe := (Mean(dailyReturns) - dailyRiskFree) / stdDev * math.Sqrt(tradingDaysPerYear)
	return &sharpe
}
