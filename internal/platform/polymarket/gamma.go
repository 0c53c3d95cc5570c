// Package polymarket provides market discovery against the Polymarket
// Gamma API.
package polymarket

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

// GammaClient is the REST client for the Polymarket Gamma API, used here
// only for trending-market discovery.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform identifies this source's venue.
func (g *GammaClient) Platform() domain.Platform {
	return domain.PlatformPolymarket
}

// apiMarket is the subset of a Gamma market we consume. Volume and price
// fields arrive as strings.
type apiMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Volume        string `json:"volume"`
	OutcomePrices string `json:"outcomePrices"` // JSON array string, e.g. `["0.15","0.85"]`
	Active        bool   `json:"active"`
}

// FetchTrending returns up to limit active markets ordered by volume,
// converted into immutable observations.
func (g *GammaClient) FetchTrending(ctx context.Context, limit int) ([]domain.MarketObservation, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume")
	params.Set("ascending", "false")

	endpoint := g.baseURL + "/markets?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: fetch trending: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polymarket/gamma: unexpected status %d", resp.StatusCode)
	}

	var markets []apiMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	observations := make([]domain.MarketObservation, 0, len(markets))
	for _, m := range markets {
		observations = append(observations, domain.MarketObservation{
			Platform:    domain.PlatformPolymarket,
			Title:       m.Question,
			Volume:      parseFloat(m.Volume),
			CurrentOdds: yesPrice(m.OutcomePrices),
			ExternalID:  "polymarket-" + m.ID,
		})
	}
	return observations, nil
}

// yesPrice extracts the first outcome price from the Gamma string-encoded
// array. Unparseable input yields 0, which downstream treats as "no odds".
func yesPrice(outcomePrices string) float64 {
	var prices []string
	if err := json.Unmarshal([]byte(outcomePrices), &prices); err != nil || len(prices) == 0 {
		return 0
	}
	return parseFloat(prices[0])
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
