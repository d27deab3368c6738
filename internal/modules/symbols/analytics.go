package symbols

import (
	"context"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/pkg/formulas"
	"github.com/rs/zerolog"
)

// HistoryProvider fetches daily candles for a symbol. Satisfied by the
// yahoo client.
type HistoryProvider interface {
	GetDailyHistory(ctx context.Context, symbol, rng string) ([]domain.Candle, error)
}

// Analytics summarizes a symbol's recent price behavior. Indicator fields
// are nil when the history is too short to compute them.
type Analytics struct {
	Ticker               string   `json:"ticker"`
	Range                string   `json:"range"`
	Candles              int      `json:"candles"`
	LastClose            float64  `json:"last_close"`
	SMA20                *float64 `json:"sma_20"`
	EMA12                *float64 `json:"ema_12"`
	RSI14                *float64 `json:"rsi_14"`
	MeanDailyReturn      float64  `json:"mean_daily_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          *float64 `json:"sharpe_ratio"`
}

// AnalyticsService computes indicator and return statistics from daily
// history
type AnalyticsService struct {
	history HistoryProvider
	log     zerolog.Logger
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(history HistoryProvider, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		history: history,
		log:     log.With().Str("service", "symbol_analytics").Logger(),
	}
}

// Analyze fetches daily closes for the range and computes SMA(20), EMA(12),
// RSI(14) plus daily-return mean, volatility and Sharpe
func (s *AnalyticsService) Analyze(ctx context.Context, ticker, rng string) (*Analytics, error) {
	candles, err := s.history.GetDailyHistory(ctx, ticker, rng)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, domain.ErrPriceUnavailable
	}

	closes := make([]float64, len(candles))
	for i, candle := range candles {
		closes[i] = candle.Close
	}
	returns := formulas.CalculateReturns(closes)

	return &Analytics{
		Ticker:               ticker,
		Range:                rng,
		Candles:              len(candles),
		LastClose:            closes[len(closes)-1],
		SMA20:                formulas.CalculateSMA(closes, 20),
		EMA12:                formulas.CalculateEMA(closes, 12),
		RSI14:                formulas.CalculateRSI(closes, 14),
		MeanDailyReturn:      formulas.Mean(returns),
		AnnualizedVolatility: formulas.AnnualizedVolatility(returns),
		SharpeRatio:          formulas.CalculateSharpeRatio(returns, 0),
	}, nil
}
