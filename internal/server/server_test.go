package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402labs/signalfeed/internal/domain"
	"github.com/x402labs/signalfeed/internal/gate"
	"github.com/x402labs/signalfeed/internal/server/handler"
)

const testVault = "VauLt1111111111111111111111111111111111111"

// feedStub implements the handler's service interface over a fixed catalog.
type feedStub struct {
	signals    []domain.Signal
	votes      []string
	refreshed  int
	refreshErr error
	unlocked   []string
}

func (f *feedStub) List() []domain.Signal { return f.signals }

func (f *feedStub) Vote(_ context.Context, id string, up bool) error {
	for _, sig := range f.signals {
		if sig.ID == id {
			f.votes = append(f.votes, fmt.Sprintf("%s:%v", id, up))
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *feedStub) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func (f *feedStub) NotifyUnlocked(_ context.Context, sig domain.Signal) {
	f.unlocked = append(f.unlocked, sig.ID)
}

func (f *feedStub) Get(id string) (domain.Signal, bool) {
	for _, sig := range f.signals {
		if sig.ID == id {
			return sig, true
		}
	}
	return domain.Signal{}, false
}

func (f *feedStub) Status() (int, time.Time) {
	return len(f.signals), time.Now().UTC()
}

// acceptVerifier confirms a single well-known proof and rejects the rest.
type acceptVerifier struct {
	accept domain.PaymentProof
	calls  int
}

func (v *acceptVerifier) Verify(_ context.Context, proof domain.PaymentProof, _ int64) domain.VerificationResult {
	v.calls++
	if proof == v.accept {
		return domain.VerificationConfirmed
	}
	return domain.VerificationRejected
}

func catalogSignals() []domain.Signal {
	return []domain.Signal{
		{
			ID:             "sig-1",
			MarketID:       "polymarket-7",
			Platform:       domain.PlatformPolymarket,
			Title:          "Will the Fed cut in March?",
			WinProbability: 61.2,
			Reasoning:      "dot plot drift",
			TailRisks:      []string{"surprise CPI print"},
			Price:          50000,
			Locked:         true,
		},
		{
			ID:       "sig-2",
			MarketID: "kalshi-CPI",
			Platform: domain.PlatformKalshi,
			Title:    "CPI above 3%?",
			Price:    50000,
			Locked:   true,
		},
	}
}

// newTestAPI builds the full server handler chain around stubs and returns
// the feed stub, verifier, and a test client base URL.
func newTestAPI(t *testing.T, apiKey string) (*feedStub, *acceptVerifier, string) {
	t.Helper()

	feed := &feedStub{signals: catalogSignals()}
	verifier := &acceptVerifier{accept: "good-proof"}
	accessGate := gate.New(feed, verifier, nil, testVault, "USDC", slog.Default())

	srv := NewServer(Config{
		Port:   0,
		APIKey: apiKey,
	}, Handlers{
		Health:  handler.NewHealthHandler(feed, slog.Default()),
		Signals: handler.NewSignalHandler(feed, accessGate, slog.Default()),
	}, nil, slog.Default())

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return feed, verifier, ts.URL
}

func TestHealth(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["signals"])
	assert.NotEmpty(t, body["last_refresh"])
}

func TestListSignals_AlwaysRedacted(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Get(base + "/api/signals")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Signals []domain.Signal `json:"signals"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Signals, 2)

	for _, sig := range body.Signals {
		assert.True(t, sig.Locked)
		assert.Empty(t, sig.Reasoning)
		assert.Empty(t, sig.TailRisks)
		assert.Zero(t, sig.WinProbability)
		assert.NotEmpty(t, sig.Title)
		assert.Equal(t, int64(50000), sig.Price)
	}
}

func TestListSignals_Pagination(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Get(base + "/api/signals?limit=1&offset=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Signals []domain.Signal `json:"signals"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Signals, 1)
	assert.Equal(t, "sig-2", body.Signals[0].ID)
}

func TestReveal_NoProof(t *testing.T) {
	_, verifier, base := newTestAPI(t, "")

	resp, err := http.Post(base+"/api/signals/sig-1/reveal", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Zero(t, verifier.calls)

	wantChallenge := "x402 amount=50000, address=" + testVault + ", asset=USDC"
	assert.Equal(t, wantChallenge, resp.Header.Get("X-402-Payment-Options"))

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Payment string `json:"payment"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "payment_required", body.Status)
	assert.Equal(t, wantChallenge, body.Payment)
	assert.NotContains(t, body.Message, "dot plot drift")
}

func TestReveal_ValidProofHeader(t *testing.T) {
	feed, verifier, base := newTestAPI(t, "")

	req, err := http.NewRequest(http.MethodPost, base+"/api/signals/sig-1/reveal", nil)
	require.NoError(t, err)
	req.Header.Set("X-402-Payment-Proof", "good-proof")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, verifier.calls)

	var body struct {
		Status    string        `json:"status"`
		Reasoning string        `json:"alpha_reasoning"`
		Signal    domain.Signal `json:"signal"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "dot plot drift", body.Reasoning, "reasoning is readable at the top level")
	assert.False(t, body.Signal.Locked)
	assert.Equal(t, "dot plot drift", body.Signal.Reasoning)
	assert.Equal(t, []string{"surprise CPI print"}, body.Signal.TailRisks)
	assert.Equal(t, 61.2, body.Signal.WinProbability)

	assert.Equal(t, []string{"sig-1"}, feed.unlocked, "a confirmed payment raises the operator event")
}

func TestReveal_ValidProofInBody(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Post(base+"/api/signals/sig-1/reveal", "application/json",
		strings.NewReader(`{"payment_proof": "good-proof"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReveal_InvalidProof(t *testing.T) {
	feed, verifier, base := newTestAPI(t, "")

	req, err := http.NewRequest(http.MethodPost, base+"/api/signals/sig-1/reveal", nil)
	require.NoError(t, err)
	req.Header.Set("X-402-Payment-Proof", "forged-proof")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, 1, verifier.calls)
	assert.Empty(t, feed.unlocked)
}

func TestReveal_UnknownSignal(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Post(base+"/api/signals/no-such-id/reveal", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown ids are not a payment problem")
	assert.Empty(t, resp.Header.Get("X-402-Payment-Options"))
}

func TestVoteEndpoint(t *testing.T) {
	feed, _, base := newTestAPI(t, "")

	resp, err := http.Post(base+"/api/signals/sig-2/vote", "application/json",
		strings.NewReader(`{"direction": "up"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"sig-2:true"}, feed.votes)
}

func TestVoteEndpoint_BadDirection(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	resp, err := http.Post(base+"/api/signals/sig-1/vote", "application/json",
		strings.NewReader(`{"direction": "sideways"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRefresh_RequiresAPIKey(t *testing.T) {
	feed, _, base := newTestAPI(t, "secret-key")

	// Without a key.
	resp, err := http.Post(base+"/api/admin/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, feed.refreshed)

	// With the key.
	req, err := http.NewRequest(http.MethodPost, base+"/api/admin/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret-key")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, feed.refreshed)
}

func TestCORSPreflight(t *testing.T) {
	_, _, base := newTestAPI(t, "")

	req, err := http.NewRequest(http.MethodOptions, base+"/api/signals", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://feed.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://feed.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-402-Payment-Proof")
}
