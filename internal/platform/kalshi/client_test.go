package kalshi

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
		w.Write([]byte(`{"markets": [
			{"ticker": "FED-26MAR", "title": "Fed cuts rates in March?", "status": "open", "last_price": 61, "volume": 54000},
			{"ticker": "CPI-26FEB", "title": "CPI above 3%?", "status": "open", "last_price": 7, "volume": 1200},
			{"ticker": "NFP-26JAN", "title": "January payrolls beat?", "status": "settled", "last_price": 100, "volume": 9000}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	assert.Equal(t, domain.PlatformKalshi, client.Platform())

	obs, err := client.FetchTrending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, obs, 2, "non-open markets are filtered out")

	assert.Contains(t, gotQuery, "limit=10")
	assert.Contains(t, gotQuery, "status=open")

	assert.Equal(t, domain.MarketObservation{
		Platform:    domain.PlatformKalshi,
		Title:       "Fed cuts rates in March?",
		Volume:      54000,
		CurrentOdds: 0.61,
		ExternalID:  "kalshi-FED-26MAR",
	}, obs[0])
	assert.Equal(t, 0.07, obs[1].CurrentOdds)
}

func TestFetchTrending_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets": []}`))
	}))
	defer srv.Close()

	obs, err := NewClient(srv.URL).FetchTrending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestFetchTrending_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchTrending(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
