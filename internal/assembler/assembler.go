// Package assembler converts market observations and alpha opinions into
// priced, locked signal records.
package assembler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/x402labs/signalfeed/internal/domain"
	"github.com/x402labs/signalfeed/internal/scorer"
)

// Assembler scores observations and assembles them into signals. Scoring
// calls fan out concurrently up to the configured limit; output ordering
// always matches input ordering regardless of completion order.
type Assembler struct {
	scorer      scorer.Scorer
	price       int64
	concurrency int
	logger      *slog.Logger
}

// New creates an Assembler. price is the fixed catalog price assigned to
// every signal, in the smallest unit of the settlement asset.
func New(sc scorer.Scorer, price int64, concurrency int, logger *slog.Logger) *Assembler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Assembler{
		scorer:      sc,
		price:       price,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "assembler")),
	}
}

// Assemble produces exactly one Signal per observation, in input order. The
// scorer is invoked exactly once per observation; a scoring failure
// substitutes the documented fallback opinion rather than dropping the
// observation or aborting the batch, so one bad upstream call never affects
// unrelated signals. Every signal is created locked with the fixed price.
func (a *Assembler) Assemble(ctx context.Context, observations []domain.MarketObservation) []domain.Signal {
	if len(observations) == 0 {
		return nil
	}

	opinions := make([]domain.AlphaOpinion, len(observations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, obs := range observations {
		g.Go(func() error {
			opinion, err := a.scorer.Score(gctx, obs)
			if err != nil {
				a.logger.WarnContext(gctx, "scoring failed, using fallback opinion",
					slog.String("platform", string(obs.Platform)),
					slog.String("external_id", obs.ExternalID),
					slog.String("error", err.Error()),
				)
				opinion = scorer.FallbackOpinion()
			}
			opinions[i] = opinion
			return nil
		})
	}
	// Workers never return errors; failures become fallback opinions.
	_ = g.Wait()

	now := time.Now().UTC()
	signals := make([]domain.Signal, 0, len(observations))
	for i, obs := range observations {
		signals = append(signals, domain.Signal{
			ID:             uuid.NewString(),
			MarketID:       obs.ExternalID,
			Platform:       obs.Platform,
			Title:          obs.Title,
			WinProbability: opinions[i].WinProbability,
			Reasoning:      opinions[i].Reasoning,
			TailRisks:      opinions[i].TailRisks,
			Price:          a.price,
			CreatedAt:      now,
			Locked:         true,
		})
	}
	return signals
}
