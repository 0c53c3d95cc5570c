// Package kalshi provides market discovery against the Kalshi REST API.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/x402labs/signalfeed/internal/domain"
)

// Client is the REST client for the public Kalshi market endpoints. Market
// discovery needs no authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Kalshi client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform identifies this source's venue.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformKalshi
}

// apiMarket is the subset of a Kalshi market we consume. Prices are in
// cents (1-99); volume is a contract count.
type apiMarket struct {
	Ticker    string  `json:"ticker"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	LastPrice float64 `json:"last_price"`
	Volume    int64   `json:"volume"`
}

type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
}

// FetchTrending returns up to limit open markets converted into immutable
// observations. Kalshi's cent prices are normalized to 0.0-1.0 odds.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]domain.MarketObservation, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")

	endpoint := c.baseURL + "/markets?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kalshi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kalshi: fetch trending: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("kalshi: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kalshi: unexpected status %d", resp.StatusCode)
	}

	var mr marketsResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return nil, fmt.Errorf("kalshi: decode markets: %w", err)
	}

	observations := make([]domain.MarketObservation, 0, len(mr.Markets))
	for _, m := range mr.Markets {
		// The query asks for open markets only; skip anything else the API
		// returns anyway, a settled market is not worth scoring.
		if m.Status != "open" {
			continue
		}
		observations = append(observations, domain.MarketObservation{
			Platform:    domain.PlatformKalshi,
			Title:       m.Title,
			Volume:      float64(m.Volume),
			CurrentOdds: m.LastPrice / 100,
			ExternalID:  "kalshi-" + m.Ticker,
		})
	}
	return observations, nil
}
