// Package gate implements the payment-gated access decision for signal
// content: given a signal identifier and an optional payment proof, it
// decides between returning unlocked content and issuing an x402 challenge.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/x402labs/signalfeed/internal/domain"
)

// State is the terminal state of one reveal interaction.
type State int

const (
	// StatePaymentRequired means the caller must (re)submit a valid proof.
	// Rejected and Unknown verification outcomes both land here; they are
	// distinguished in logs, not in the response.
	StatePaymentRequired State = iota

	// StateUnlocked means the proof was confirmed and the full signal is
	// released.
	StateUnlocked
)

// Catalog is the read side of the signal collection consulted by the gate.
type Catalog interface {
	Get(id string) (domain.Signal, bool)
}

// Verifier is the payment oracle. The gate calls it at most once per
// request and never retries within a request.
type Verifier interface {
	Verify(ctx context.Context, proof domain.PaymentProof, requiredAmount int64) domain.VerificationResult
}

// Result is the outcome of a reveal request. When State is
// StatePaymentRequired, Signal is redacted and Challenge carries the x402
// payment metadata; when StateUnlocked, Signal carries the full content.
type Result struct {
	State     State
	Signal    domain.Signal
	Challenge string

	// Verified reports that the ledger confirmed the payment during this
	// request, as opposed to an unlock replayed from the unlock store.
	Verified bool
}

// Gate decides lock/unlock transitions. The optional unlock store persists
// confirmed (signal, proof) pairs so repeat reveals skip re-verification;
// without it the gate is stateless and re-verifies on every request.
type Gate struct {
	catalog  Catalog
	verifier Verifier
	unlocks  domain.UnlockStore // may be nil
	vault    string
	asset    string
	logger   *slog.Logger
}

// New creates a Gate. unlocks may be nil for the stateless configuration.
func New(catalog Catalog, verifier Verifier, unlocks domain.UnlockStore, vault, asset string, logger *slog.Logger) *Gate {
	return &Gate{
		catalog:  catalog,
		verifier: verifier,
		unlocks:  unlocks,
		vault:    vault,
		asset:    asset,
		logger:   logger.With(slog.String("component", "gate")),
	}
}

// Challenge renders the x402 payment challenge for the given price.
func (g *Gate) Challenge(price int64) string {
	return fmt.Sprintf("x402 amount=%d, address=%s, asset=%s", price, g.vault, g.asset)
}

// Reveal runs the access decision for one (signal, proof) interaction.
// Unknown signal identifiers return domain.ErrNotFound, which callers must
// surface distinctly from a payment challenge. The gate never leaks
// reasoning or tail risks through a PaymentRequired result.
func (g *Gate) Reveal(ctx context.Context, signalID string, proof domain.PaymentProof) (Result, error) {
	sig, ok := g.catalog.Get(signalID)
	if !ok {
		return Result{}, fmt.Errorf("gate: signal %s: %w", signalID, domain.ErrNotFound)
	}

	// No proof presented: challenge immediately, no verification attempted.
	if proof.Empty() {
		return g.paymentRequired(sig), nil
	}

	// A previously confirmed (signal, proof) pair skips the ledger.
	if g.unlocks != nil {
		unlocked, err := g.unlocks.IsUnlocked(ctx, sig.ID, proof)
		if err != nil {
			g.logger.WarnContext(ctx, "unlock lookup failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
		} else if unlocked {
			return Result{State: StateUnlocked, Signal: sig.Unlocked()}, nil
		}
	}

	// Exactly one verifier call per request; the caller resubmits on
	// Unknown rather than the gate retrying.
	result := g.verifier.Verify(ctx, proof, sig.Price)

	g.logger.InfoContext(ctx, "payment verification",
		slog.String("signal_id", sig.ID),
		slog.String("result", result.String()),
	)

	if result != domain.VerificationConfirmed {
		return g.paymentRequired(sig), nil
	}

	if g.unlocks != nil {
		if err := g.unlocks.MarkUnlocked(ctx, sig.ID, proof); err != nil {
			// Best effort: the next reveal just re-verifies.
			g.logger.WarnContext(ctx, "persisting unlock failed",
				slog.String("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return Result{State: StateUnlocked, Signal: sig.Unlocked(), Verified: true}, nil
}

func (g *Gate) paymentRequired(sig domain.Signal) Result {
	return Result{
		State:     StatePaymentRequired,
		Signal:    sig.Redacted(),
		Challenge: g.Challenge(sig.Price),
	}
}
