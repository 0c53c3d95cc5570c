package domain

import "strings"

// PaymentProof is an opaque, caller-supplied reference to a ledger
// transaction, offered as evidence of payment. Its structure is chain
// specific and is validated by the payment verifier, never by the gate.
type PaymentProof string

// Empty reports whether no proof was presented.
func (p PaymentProof) Empty() bool { return strings.TrimSpace(string(p)) == "" }

// VerificationResult is the tri-state outcome of checking a payment proof
// against the ledger. The zero value is VerificationUnknown so that failure
// paths which return early default to the retryable state.
type VerificationResult int

const (
	// VerificationUnknown means the reference could not be resolved: not yet
	// finalized, node error, or timeout. Callers may retry.
	VerificationUnknown VerificationResult = iota

	// VerificationConfirmed means a successful transfer of at least the
	// required amount reached the vault.
	VerificationConfirmed

	// VerificationRejected means the reference is malformed, the transaction
	// failed on-chain, or the transfer did not cover the required amount.
	VerificationRejected
)

// String returns the log-friendly name of the result.
func (r VerificationResult) String() string {
	switch r {
	case VerificationConfirmed:
		return "confirmed"
	case VerificationRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
