package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/x402labs/signalfeed/internal/domain"
)

// UnlockCache implements domain.UnlockStore using Redis string keys with a
// TTL. The key binds the signal id and a digest of the proof, so a
// confirmed proof can never unlock a different signal.
//
// Key schema:
//
//	unlock:{signalID}:{sha256(proof)} - "1", expiring after the TTL
type UnlockCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUnlockCache creates an UnlockCache backed by the given Client. ttl
// bounds how long a confirmed unlock is remembered; afterwards the client
// simply re-verifies against the ledger.
func NewUnlockCache(c *Client, ttl time.Duration) *UnlockCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UnlockCache{rdb: c.rdb, ttl: ttl}
}

func unlockKey(signalID string, proof domain.PaymentProof) string {
	digest := sha256.Sum256([]byte(proof))
	return "unlock:" + signalID + ":" + hex.EncodeToString(digest[:])
}

// MarkUnlocked records a confirmed unlock for the (signal, proof) pair.
func (u *UnlockCache) MarkUnlocked(ctx context.Context, signalID string, proof domain.PaymentProof) error {
	if err := u.rdb.Set(ctx, unlockKey(signalID, proof), "1", u.ttl).Err(); err != nil {
		return fmt.Errorf("redis: mark unlocked %s: %w", signalID, err)
	}
	return nil
}

// IsUnlocked reports whether the (signal, proof) pair was previously
// confirmed and has not expired.
func (u *UnlockCache) IsUnlocked(ctx context.Context, signalID string, proof domain.PaymentProof) (bool, error) {
	err := u.rdb.Get(ctx, unlockKey(signalID, proof)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: unlock lookup %s: %w", signalID, err)
	}
	return true, nil
}
