package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/domain"
)

type mockQuotes struct {
	quotes map[string]float64
}

func (m *mockQuotes) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	price, ok := m.quotes[symbol]
	if !ok {
		return nil, errors.New("upstream down")
	}
	return &domain.Quote{Symbol: symbol, Price: price}, nil
}

func TestListForUserEnrichesWithQuotes(t *testing.T) {
	repo, db := setupPositionRepo(t)
	service := NewService(repo, &mockQuotes{quotes: map[string]float64{"AAPL": 175.50}},
		zerolog.New(nil).Level(zerolog.Disabled))

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	positions, err := service.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	require.NotNil(t, p.CurrentPrice)
	assert.Equal(t, "175.50", p.CurrentPrice.StringFixed(2))
	assert.Equal(t, "1500.00", p.CostBasis.StringFixed(2))
	require.NotNil(t, p.MarketValue)
	assert.Equal(t, "1755.00", p.MarketValue.StringFixed(2))
	require.NotNil(t, p.UnrealizedPL)
	assert.Equal(t, "255.00", p.UnrealizedPL.StringFixed(2))
	require.NotNil(t, p.UnrealizedPLPercent)
	assert.Equal(t, "17.00", p.UnrealizedPLPercent.StringFixed(2))
}

func TestListForUserKeepsUnpricedPositions(t *testing.T) {
	repo, db := setupPositionRepo(t)
	service := NewService(repo, &mockQuotes{quotes: map[string]float64{}},
		zerolog.New(nil).Level(zerolog.Disabled))

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	positions, err := service.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Nil(t, p.CurrentPrice)
	assert.Nil(t, p.MarketValue)
	assert.Nil(t, p.UnrealizedPL)
	assert.Equal(t, "1500.00", p.CostBasis.StringFixed(2))
}

func TestSummarizeTotalsAndWeights(t *testing.T) {
	repo, db := setupPositionRepo(t)
	service := NewService(repo, &mockQuotes{quotes: map[string]float64{
		"AAPL": 200.00,
		"MSFT": 100.00,
	}}, zerolog.New(nil).Level(zerolog.Disabled))

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00") // value 2000, cost 1500
	mustUpsert(t, db, repo, 1, "MSFT", "20", "120.00") // value 2000, cost 2400

	summary, err := service.Summarize(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PositionCount)
	assert.Equal(t, "4000.00", summary.TotalMarketValue.StringFixed(2))
	assert.Equal(t, "3900.00", summary.TotalCost.StringFixed(2))
	assert.Equal(t, "100.00", summary.UnrealizedPL.StringFixed(2))
	assert.Empty(t, summary.MissingPrices)

	require.Len(t, summary.Positions, 2)
	for _, p := range summary.Positions {
		require.NotNil(t, p.Weight)
		assert.Equal(t, "0.5000", p.Weight.StringFixed(4))
	}
}

func TestSummarizeSkipsUnpricedInTotals(t *testing.T) {
	repo, db := setupPositionRepo(t)
	service := NewService(repo, &mockQuotes{quotes: map[string]float64{
		"AAPL": 200.00,
	}}, zerolog.New(nil).Level(zerolog.Disabled))

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")
	mustUpsert(t, db, repo, 1, "ZZZZ", "5", "10.00")

	summary, err := service.Summarize(context.Background(), 1)
	require.NoError(t, err)

	// ZZZZ contributes to cost but not to market value or P&L
	assert.Equal(t, "2000.00", summary.TotalMarketValue.StringFixed(2))
	assert.Equal(t, "1550.00", summary.TotalCost.StringFixed(2))
	assert.Equal(t, "500.00", summary.UnrealizedPL.StringFixed(2))
	assert.Equal(t, []string{"ZZZZ"}, summary.MissingPrices)

	for _, p := range summary.Positions {
		if p.Ticker == "ZZZZ" {
			assert.Nil(t, p.Weight)
		} else {
			require.NotNil(t, p.Weight)
			assert.Equal(t, "1.0000", p.Weight.StringFixed(4))
		}
	}
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	repo, _ := setupPositionRepo(t)
	service := NewService(repo, &mockQuotes{quotes: map[string]float64{}},
		zerolog.New(nil).Level(zerolog.Disabled))

	summary, err := service.Summarize(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.PositionCount)
	assert.True(t, summary.TotalMarketValue.IsZero())
	assert.True(t, summary.UnrealizedPL.IsZero())
	assert.Empty(t, summary.Positions)
}
