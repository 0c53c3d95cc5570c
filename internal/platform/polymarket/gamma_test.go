package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402labs/signalfeed/internal/domain"
)

func TestFetchTrending(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		gotQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "515123", "question": "Will BTC close above 100k?", "volume": "1250000.50", "outcomePrices": "[\"0.62\",\"0.38\"]", "active": true},
			{"id": "515124", "question": "Will ETH flip BTC?", "volume": "400000", "outcomePrices": "[\"0.03\",\"0.97\"]", "active": true}
		]`))
	}))
	defer srv.Close()

	client := NewGammaClient(srv.URL)
	assert.Equal(t, domain.PlatformPolymarket, client.Platform())

	obs, err := client.FetchTrending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Contains(t, gotQuery, "limit=10")
	assert.Contains(t, gotQuery, "active=true")
	assert.Contains(t, gotQuery, "order=volume")

	assert.Equal(t, domain.MarketObservation{
		Platform:    domain.PlatformPolymarket,
		Title:       "Will BTC close above 100k?",
		Volume:      1250000.50,
		CurrentOdds: 0.62,
		ExternalID:  "polymarket-515123",
	}, obs[0])
	assert.Equal(t, "polymarket-515124", obs[1].ExternalID)
	assert.Equal(t, 0.03, obs[1].CurrentOdds)
}

func TestFetchTrending_UnparseableNumbersAreZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "1", "question": "q", "volume": "n/a", "outcomePrices": "garbage", "active": true}]`))
	}))
	defer srv.Close()

	obs, err := NewGammaClient(srv.URL).FetchTrending(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Zero(t, obs[0].Volume)
	assert.Zero(t, obs[0].CurrentOdds)
}

func TestFetchTrending_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).FetchTrending(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
