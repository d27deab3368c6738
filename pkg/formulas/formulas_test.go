package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	sma := CalculateSMA(closes, 5)
	require.NotNil(t, sma)
	assert.InDelta(t, 3.0, *sma, 0.0001)

	// Window shorter than the series uses the tail
	sma = CalculateSMA(closes, 2)
	require.NotNil(t, sma)
	assert.InDelta(t, 4.5, *sma, 0.0001)

	assert.Nil(t, CalculateSMA(closes, 6), "insufficient data")
	assert.Nil(t, CalculateSMA(closes, 0))
}

func TestCalculateEMA(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10}

	ema := CalculateEMA(closes, 3)
	require.NotNil(t, ema)
	assert.InDelta(t, 10.0, *ema, 0.0001, "flat series EMA equals the price")

	assert.Nil(t, CalculateEMA([]float64{1, 2}, 3))
}

func TestCalculateRSI(t *testing.T) {
	// Strictly rising closes drive RSI to 100
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}

	rsi := CalculateRSI(rising, 14)
	require.NotNil(t, rsi)
	assert.InDelta(t, 100.0, *rsi, 0.0001)

	assert.Nil(t, CalculateRSI(rising[:14], 14), "needs period+1 closes")
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 0.0001)
	assert.InDelta(t, -0.10, returns[1], 0.0001)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestMeanAndStdDev(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(data), 0.0001)
	assert.InDelta(t, 2.138, StdDev(data), 0.001)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, StdDev([]float64{1}))
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.003, -0.01, 0.015}

	sharpe := CalculateSharpeRatio(returns, 0)
	require.NotNil(t, sharpe)
	assert.Greater(t, *sharpe, 0.0, "positive mean return gives positive Sharpe")

	// Flat series has no deviation to divide by
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0))
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01}, 0))
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Zero(t, AnnualizedVolatility([]float64{0.01}))

	vol := AnnualizedVolatility([]float64{0.01, -0.01, 0.02, -0.02})
	assert.Greater(t, vol, 0.0)
}
