package solana

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mr-tron/base58"

	"github.com/x402labs/signalfeed/internal/domain"
)

// signatureLen is the byte length of an ed25519 transaction signature.
const signatureLen = 64

// Verifier checks claimed payment proofs against the ledger. It is pure and
// side-effect-free: repeated verification of the same finalized proof always
// yields the same result, and it never mutates signal state.
type Verifier struct {
	rpc    *RPCClient
	vault  string
	mint   string
	logger *slog.Logger
}

// NewVerifier creates a Verifier that accepts transfers of the given token
// mint to the vault address.
func NewVerifier(rpc *RPCClient, vault, mint string, logger *slog.Logger) *Verifier {
	return &Verifier{
		rpc:    rpc,
		vault:  vault,
		mint:   mint,
		logger: logger.With(slog.String("component", "verifier")),
	}
}

// Verify resolves the proof against the ledger and decides whether it pays
// for requiredAmount.
//
//   - A structurally invalid reference is Rejected without any network call.
//   - Resolution failures (not found, node error, timeout) are Unknown: the
//     caller may retry once the ledger finalizes.
//   - A resolved transaction that failed on-chain is Rejected.
//   - A successful transaction is Confirmed only when it moved at least
//     requiredAmount of the settlement token to the vault.
func (v *Verifier) Verify(ctx context.Context, proof domain.PaymentProof, requiredAmount int64) domain.VerificationResult {
	sig := string(proof)

	raw, err := base58.Decode(sig)
	if err != nil || len(raw) != signatureLen {
		v.logger.DebugContext(ctx, "malformed payment proof",
			slog.Int("proof_len", len(sig)),
		)
		return domain.VerificationRejected
	}

	tx, err := v.rpc.GetTransaction(ctx, sig)
	if err != nil {
		if errors.Is(err, errTxNotFound) {
			v.logger.InfoContext(ctx, "proof not resolvable yet",
				slog.String("signature", sig),
			)
		} else {
			v.logger.WarnContext(ctx, "ledger resolution failed",
				slog.String("signature", sig),
				slog.String("error", err.Error()),
			)
		}
		return domain.VerificationUnknown
	}

	if tx.Meta == nil {
		// Node returned the transaction without metadata; treat as not yet
		// final rather than denying permanently.
		return domain.VerificationUnknown
	}

	if tx.Meta.Failed() {
		v.logger.InfoContext(ctx, "proof references failed transaction",
			slog.String("signature", sig),
		)
		return domain.VerificationRejected
	}

	received := tx.Meta.receivedBy(v.vault, v.mint)
	if received < requiredAmount {
		v.logger.InfoContext(ctx, "proof underfunded",
			slog.String("signature", sig),
			slog.Int64("received", received),
			slog.Int64("required", requiredAmount),
		)
		return domain.VerificationRejected
	}

	return domain.VerificationConfirmed
}
