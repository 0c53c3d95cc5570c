package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402labs/signalfeed/internal/domain"
	"github.com/x402labs/signalfeed/internal/scorer"
)

// stubScorer returns a deterministic opinion derived from the observation,
// failing for external IDs in the fail set.
type stubScorer struct {
	calls atomic.Int64
	fail  map[string]bool
}

func (s *stubScorer) Score(_ context.Context, obs domain.MarketObservation) (domain.AlphaOpinion, error) {
	s.calls.Add(1)
	if s.fail[obs.ExternalID] {
		return domain.AlphaOpinion{}, errors.New("model overloaded")
	}
	return domain.AlphaOpinion{
		WinProbability: 10,
		Reasoning:      "opinion for " + obs.ExternalID,
		TailRisks:      []string{obs.ExternalID},
	}, nil
}

func observations(n int) []domain.MarketObservation {
	obs := make([]domain.MarketObservation, 0, n)
	for i := 0; i < n; i++ {
		obs = append(obs, domain.MarketObservation{
			Platform:    domain.PlatformPolymarket,
			Title:       fmt.Sprintf("market %d", i),
			Volume:      float64(1000 * i),
			CurrentOdds: 0.5,
			ExternalID:  fmt.Sprintf("polymarket-%d", i),
		})
	}
	return obs
}

func TestAssemble_OnePerObservationInOrder(t *testing.T) {
	sc := &stubScorer{}
	asm := New(sc, 50000, 3, slog.Default())

	obs := observations(10)
	signals := asm.Assemble(context.Background(), obs)

	require.Len(t, signals, 10)
	assert.Equal(t, int64(10), sc.calls.Load())

	for i, sig := range signals {
		assert.Equal(t, obs[i].ExternalID, sig.MarketID, "output order must match input order")
		assert.Equal(t, "opinion for "+obs[i].ExternalID, sig.Reasoning)
		assert.True(t, sig.Locked, "signals are created locked")
		assert.Equal(t, int64(50000), sig.Price)
		assert.NotEmpty(t, sig.ID)
		assert.False(t, sig.CreatedAt.IsZero())
	}
}

func TestAssemble_UniqueIDs(t *testing.T) {
	asm := New(&stubScorer{}, 50000, 2, slog.Default())

	signals := asm.Assemble(context.Background(), observations(20))

	seen := make(map[string]bool, len(signals))
	for _, sig := range signals {
		assert.False(t, seen[sig.ID], "duplicate signal id %s", sig.ID)
		seen[sig.ID] = true
	}
}

func TestAssemble_FallbackOnScorerFailure(t *testing.T) {
	sc := &stubScorer{fail: map[string]bool{"polymarket-1": true}}
	asm := New(sc, 50000, 2, slog.Default())

	obs := observations(3)
	signals := asm.Assemble(context.Background(), obs)

	require.Len(t, signals, 3, "a scoring failure never drops the observation")

	fb := scorer.FallbackOpinion()
	assert.Equal(t, fb.WinProbability, signals[1].WinProbability)
	assert.Equal(t, fb.Reasoning, signals[1].Reasoning)
	assert.Equal(t, fb.TailRisks, signals[1].TailRisks)

	// Neighbours are unaffected.
	assert.Equal(t, "opinion for polymarket-0", signals[0].Reasoning)
	assert.Equal(t, "opinion for polymarket-2", signals[2].Reasoning)

	// The scorer was still invoked exactly once per observation.
	assert.Equal(t, int64(3), sc.calls.Load())
}

func TestAssemble_AllFailuresStillProduceBatch(t *testing.T) {
	sc := &stubScorer{fail: map[string]bool{
		"polymarket-0": true,
		"polymarket-1": true,
	}}
	asm := New(sc, 50000, 1, slog.Default())

	signals := asm.Assemble(context.Background(), observations(2))

	require.Len(t, signals, 2)
	fb := scorer.FallbackOpinion()
	for _, sig := range signals {
		assert.Equal(t, fb.WinProbability, sig.WinProbability)
		assert.True(t, sig.Locked)
	}
}

func TestAssemble_EmptyInput(t *testing.T) {
	sc := &stubScorer{}
	asm := New(sc, 50000, 2, slog.Default())

	signals := asm.Assemble(context.Background(), nil)

	assert.Empty(t, signals)
	assert.Zero(t, sc.calls.Load())
}
