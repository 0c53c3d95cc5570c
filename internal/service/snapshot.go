package service

import (
	"time"

	"github.com/x402labs/signalfeed/internal/domain"
)

// snapshot is an immutable view of the signal catalog produced by one
// refresh. Readers always observe a complete snapshot: the service swaps
// the whole snapshot atomically and never mutates one in place.
type snapshot struct {
	signals   []domain.Signal
	byID      map[string]domain.Signal
	refreshed time.Time
}

func newSnapshot(signals []domain.Signal) *snapshot {
	byID := make(map[string]domain.Signal, len(signals))
	for _, s := range signals {
		byID[s.ID] = s
	}
	return &snapshot{
		signals:   signals,
		byID:      byID,
		refreshed: time.Now().UTC(),
	}
}

// emptySnapshot carries a zero refresh time so Status can distinguish
// "never refreshed" from an empty catalog.
var emptySnapshot = &snapshot{byID: map[string]domain.Signal{}}
