package domain

import "context"

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// SignalStore persists assembled signals and their community vote counters.
type SignalStore interface {
	UpsertBatch(ctx context.Context, signals []Signal) error
	GetByID(ctx context.Context, id string) (Signal, error)
	List(ctx context.Context, opts ListOpts) ([]Signal, error)
	Vote(ctx context.Context, id string, up bool) error
	Count(ctx context.Context) (int64, error)
}

// UnlockStore records confirmed unlocks keyed by (signal id, proof) so a
// client re-presenting the same proof for the same signal skips the ledger
// round-trip. Keying on both prevents a proof from being replayed against a
// different signal.
type UnlockStore interface {
	MarkUnlocked(ctx context.Context, signalID string, proof PaymentProof) error
	IsUnlocked(ctx context.Context, signalID string, proof PaymentProof) (bool, error)
}

// BatchArchiver writes a full refresh batch to cold storage for audit.
type BatchArchiver interface {
	ArchiveBatch(ctx context.Context, batchID string, signals []Signal) error
}
