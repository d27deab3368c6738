// Package yahoo provides a Yahoo-Finance-compatible client via RapidAPI:
// paged symbol listings for the import routine and daily price history for
// analytics.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/papertrade/internal/clients/pacer"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

const defaultMaxRetries = 3

// Valid history ranges accepted by the chart endpoint
var validRanges = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true, "1y": true, "2y": true, "5y": true,
}

// Client is a RapidAPI Yahoo Finance client
type Client struct {
	httpClient *http.Client
	baseURL    string // derived from host; overridable in tests
	host       string
	apiKey     string
	pace       *pacer.Pacer
	maxRetries int
	log        zerolog.Logger
}

// New creates a new Yahoo client
func New(host, apiKey string, pace *pacer.Pacer, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    "https://" + host,
		host:       host,
		apiKey:     apiKey,
		pace:       pace,
		maxRetries: defaultMaxRetries,
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// SetMaxRetries overrides the retry budget for upstream server errors.
// Negative values are ignored.
func (c *Client) SetMaxRetries(n int) {
	if n >= 0 {
		c.maxRetries = n
	}
}

// SymbolListing is one instrument row from a screener page
type SymbolListing struct {
	Ticker   string
	Name     string
	Exchange string
	Currency string
}

// SymbolPage is one page of screener results
type SymbolPage struct {
	Symbols []SymbolListing
	Total   int
}

// ListSymbols fetches one page of a predefined screener. The import routine
// walks start += count until it reaches Total or an empty page.
func (c *Client) ListSymbols(ctx context.Context, scrID string, start, count int) (*SymbolPage, error) {
	endpoint := fmt.Sprintf("%s/screeners/get-symbols-by-predefined?scrIds=%s&start=%d&count=%d",
		c.baseURL, url.QueryEscape(scrID), start, count)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response struct {
		Finance struct {
			Result []struct {
				Total  int `json:"total"`
				Quotes []struct {
					Symbol           string `json:"symbol"`
					ShortName        string `json:"shortName"`
					LongName         string `json:"longName"`
					FullExchangeName string `json:"fullExchangeName"`
					Currency         string `json:"currency"`
				} `json:"quotes"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"finance"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse screener response: %w", err)
	}

	if len(response.Finance.Result) == 0 {
		return &SymbolPage{}, nil
	}

	result := response.Finance.Result[0]
	page := &SymbolPage{
		Symbols: make([]SymbolListing, 0, len(result.Quotes)),
		Total:   result.Total,
	}

	for _, q := range result.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		page.Symbols = append(page.Symbols, SymbolListing{
			Ticker:   q.Symbol,
			Name:     name,
			Exchange: q.FullExchangeName,
			Currency: q.Currency,
		})
	}

	return page, nil
}

// GetDailyHistory fetches daily OHLCV bars for a symbol over the given range
// (1mo, 3mo, 6mo, 1y, 2y, 5y). Bars with null closes are skipped.
func (c *Client) GetDailyHistory(ctx context.Context, symbol, rng string) ([]domain.Candle, error) {
	if !validRanges[rng] {
		return nil, fmt.Errorf("invalid history range %q", rng)
	}

	endpoint := fmt.Sprintf("%s/stock/v3/get-chart?symbol=%s&range=%s&interval=1d&region=US",
		c.baseURL, url.QueryEscape(symbol), rng)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []*float64 `json:"open"`
						High   []*float64 `json:"high"`
						Low    []*float64 `json:"low"`
						Close  []*float64 `json:"close"`
						Volume []*int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse chart response for %s: %w", symbol, err)
	}

	if len(response.Chart.Result) == 0 || len(response.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no history data for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	result := response.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	candles := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads series with nulls on halted days; skip incomplete bars
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}

		candle := domain.Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// get performs a paced GET with RapidAPI headers and retries on server errors
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.log.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("Retrying Yahoo request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.pace.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.host)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("rapidapi throttled the request: %w", domain.ErrRateLimited)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("yahoo server error: status %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("yahoo returned status %d: %s", resp.StatusCode, string(body))
		case readErr != nil:
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("yahoo request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
