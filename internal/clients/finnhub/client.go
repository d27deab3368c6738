// Package finnhub provides the Finnhub market-data client: REST quotes and
// an optional live-trades websocket feed.
package finnhub

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

// Client is a Finnhub REST API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pace       *pacer.Pacer
	maxRetries int
	log        zerolog.Logger
}

// New creates a new Finnhub client
func New(baseURL, apiKey string, pace *pacer.Pacer, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    baseURL,
		apiKey:     apiKey,
		pace:       pace,
		maxRetries: defaultMaxRetries,
		log:        log.With().Str("client", "finnhub").Logger(),
	}
}

// quoteResponse mirrors Finnhub's /quote payload
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// GetQuote fetches the current quote for a symbol.
// Returns domain.ErrRateLimited on 429 (no retry, callers own the policy)
// and domain.ErrPriceUnavailable when the provider has no data for the
// symbol. Server errors are retried with exponential backoff.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("failed to parse quote response for %s: %w", symbol, err)
	}

	// Finnhub returns an all-zero payload for unknown symbols
	if qr.Current == 0 && qr.Timestamp == 0 {
		return nil, fmt.Errorf("no quote data for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Price:         qr.Current,
		Open:          qr.Open,
		High:          qr.High,
		Low:           qr.Low,
		PrevClose:     qr.PrevClose,
		Change:        qr.Change,
		ChangePercent: qr.ChangePercent,
		Timestamp:     qr.Timestamp,
	}, nil
}

// get performs a paced GET with retries on server errors
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.log.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("Retrying Finnhub request")

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

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("finnhub throttled the request: %w", domain.ErrRateLimited)
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("finnhub server error: status %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("finnhub returned status %d: %s", resp.StatusCode, string(body))
		case readErr != nil:
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("finnhub request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
