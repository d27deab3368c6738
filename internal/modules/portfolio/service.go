package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/papertrade/internal/domain"
)

// QuoteGetter provides current prices for position valuation
type QuoteGetter interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// EnrichedPosition is a position with its current market valuation attached.
// Valuation fields are nil when no price could be obtained; the position is
// still listed so holdings never disappear on a quote outage.
type EnrichedPosition struct {
	Position
	CurrentPrice        *decimal.Decimal `json:"current_price"`
	CostBasis           decimal.Decimal  `json:"cost_basis"`
	MarketValue         *decimal.Decimal `json:"market_value"`
	UnrealizedPL        *decimal.Decimal `json:"unrealized_pl"`
	UnrealizedPLPercent *decimal.Decimal `json:"unrealized_pl_percent"`
	Weight              *decimal.Decimal `json:"weight,omitempty"`
}

// Summary aggregates a user's holdings. Totals cover priced positions;
// tickers that could not be priced are listed in MissingPrices.
type Summary struct {
	TotalMarketValue    decimal.Decimal    `json:"total_market_value"`
	TotalCost           decimal.Decimal    `json:"total_cost"`
	UnrealizedPL        decimal.Decimal    `json:"unrealized_pl"`
	UnrealizedPLPercent decimal.Decimal    `json:"unrealized_pl_percent"`
	PositionCount       int                `json:"position_count"`
	Positions           []EnrichedPosition `json:"positions"`
	MissingPrices       []string           `json:"missing_prices,omitempty"`
}

// Service orchestrates portfolio queries and valuation
type Service struct {
	positions *PositionRepository
	quotes    QuoteGetter
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(positions *PositionRepository, quotes QuoteGetter, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		quotes:    quotes,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// ListForUser returns a user's positions enriched with current quotes
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]EnrichedPosition, error) {
	positions, err := s.positions.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	return s.enrich(ctx, positions), nil
}

// Summarize returns a user's positions plus portfolio-level totals and
// per-position weights
func (s *Service) Summarize(ctx context.Context, userID int64) (*Summary, error) {
	positions, err := s.positions.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	enriched := s.enrich(ctx, positions)

	summary := &Summary{
		PositionCount: len(enriched),
		Positions:     enriched,
	}

	var pricedCost decimal.Decimal
	for i := range enriched {
		summary.TotalCost = summary.TotalCost.Add(enriched[i].CostBasis)
		if enriched[i].MarketValue == nil {
			summary.MissingPrices = append(summary.MissingPrices, enriched[i].Ticker)
			continue
		}
		summary.TotalMarketValue = summary.TotalMarketValue.Add(*enriched[i].MarketValue)
		pricedCost = pricedCost.Add(enriched[i].CostBasis)
	}

	summary.UnrealizedPL = summary.TotalMarketValue.Sub(pricedCost).Round(2)
	if pricedCost.IsPositive() {
		summary.UnrealizedPLPercent = summary.UnrealizedPL.
			Div(pricedCost).Mul(decimal.NewFromInt(100)).Round(2)
	}

	// Weights are fractions of total market value, only meaningful once
	// at least one position is priced
	if summary.TotalMarketValue.IsPositive() {
		for i := range summary.Positions {
			if summary.Positions[i].MarketValue == nil {
				continue
			}
			weight := summary.Positions[i].MarketValue.
				Div(summary.TotalMarketValue).Round(4)
			summary.Positions[i].Weight = &weight
		}
	}

	return summary, nil
}

// enrich attaches current prices and derived valuation to each position.
// Quote failures are logged and leave the valuation fields nil.
func (s *Service) enrich(ctx context.Context, positions []Position) []EnrichedPosition {
	enriched := make([]EnrichedPosition, 0, len(positions))

	for _, position := range positions {
		item := EnrichedPosition{
			Position:  position,
			CostBasis: position.Shares.Mul(position.AvgCost).Round(2),
		}

		quote, err := s.quotes.GetQuote(ctx, position.Ticker)
		if err != nil || quote == nil {
			s.log.Warn().
				Err(err).
				Str("ticker", position.Ticker).
				Msg("No price for position, valuation omitted")
			enriched = append(enriched, item)
			continue
		}

		price := decimal.NewFromFloat(quote.Price)
		marketValue := position.Shares.Mul(price).Round(2)
		unrealized := marketValue.Sub(item.CostBasis).Round(2)

		item.CurrentPrice = &price
		item.MarketValue = &marketValue
		item.UnrealizedPL = &unrealized
		if item.CostBasis.IsPositive() {
			pct := unrealized.Div(item.CostBasis).Mul(decimal.NewFromInt(100)).Round(2)
			item.UnrealizedPLPercent = &pct
		}

		enriched = append(enriched, item)
	}

	return enriched
}
