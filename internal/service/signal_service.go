// Package service orchestrates the signal feed: refreshing observations
// from market sources, assembling them into locked signals, and serving
// snapshot reads.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/x402labs/signalfeed/internal/assembler"
	"github.com/x402labs/signalfeed/internal/domain"
	"github.com/x402labs/signalfeed/internal/notify"
)

// MarketSource yields a sequence of market observations for one venue.
type MarketSource interface {
	Platform() domain.Platform
	FetchTrending(ctx context.Context, limit int) ([]domain.MarketObservation, error)
}

// Broadcaster pushes refresh events to connected clients.
type Broadcaster interface {
	Broadcast(data []byte)
}

// SignalService owns the signal catalog. Refresh replaces the in-memory
// snapshot wholesale; persistence, archival, broadcast, and notification
// are best-effort side channels that never fail or block a refresh result.
type SignalService struct {
	sources     []MarketSource
	assembler   *assembler.Assembler
	sourceLimit int

	current atomic.Pointer[snapshot]

	store     domain.SignalStore   // may be nil
	archiver  domain.BatchArchiver // may be nil
	broadcast Broadcaster          // may be nil
	notifier  *notify.Notifier     // may be nil
	logger    *slog.Logger
}

// Options carries the optional side channels for NewSignalService.
type Options struct {
	Store       domain.SignalStore
	Archiver    domain.BatchArchiver
	Broadcaster Broadcaster
	Notifier    *notify.Notifier
	SourceLimit int // observations requested per source
}

// NewSignalService creates a SignalService over the given sources. Sources
// are consumed in the order given; output signal ordering follows source
// order with each source's observations concatenated.
func NewSignalService(sources []MarketSource, asm *assembler.Assembler, opts Options, logger *slog.Logger) *SignalService {
	limit := opts.SourceLimit
	if limit <= 0 {
		limit = 10
	}
	s := &SignalService{
		sources:     sources,
		assembler:   asm,
		sourceLimit: limit,
		store:       opts.Store,
		archiver:    opts.Archiver,
		broadcast:   opts.Broadcaster,
		notifier:    opts.Notifier,
		logger:      logger.With(slog.String("component", "signal_service")),
	}
	s.current.Store(emptySnapshot)
	return s
}

// Refresh fetches fresh observations from every source, assembles them into
// locked signals, and atomically swaps the catalog snapshot. A single
// source failing is logged and skipped; only when every source fails (and
// nothing was observed) is the old snapshot kept and an error returned.
func (s *SignalService) Refresh(ctx context.Context) error {
	var observations []domain.MarketObservation
	var failures int

	for _, src := range s.sources {
		obs, err := src.FetchTrending(ctx, s.sourceLimit)
		if err != nil {
			failures++
			s.logger.WarnContext(ctx, "market source failed",
				slog.String("platform", string(src.Platform())),
				slog.String("error", err.Error()),
			)
			continue
		}
		observations = append(observations, obs...)
	}

	if len(observations) == 0 {
		err := fmt.Errorf("service: refresh: %w", domain.ErrNoObservations)
		if s.notifier != nil {
			_ = s.notifier.Notify(ctx, "refresh_failed", "Signal refresh failed",
				fmt.Sprintf("all %d market sources failed", failures))
		}
		return err
	}

	signals := s.assembler.Assemble(ctx, observations)
	s.current.Store(newSnapshot(signals))

	s.logger.InfoContext(ctx, "catalog refreshed",
		slog.Int("signals", len(signals)),
		slog.Int("source_failures", failures),
	)

	s.afterRefresh(ctx, signals)
	return nil
}

// afterRefresh runs the best-effort side channels for a fresh batch.
func (s *SignalService) afterRefresh(ctx context.Context, signals []domain.Signal) {
	if s.store != nil {
		if err := s.store.UpsertBatch(ctx, signals); err != nil {
			s.logger.WarnContext(ctx, "persisting batch failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archiver != nil {
		batchID := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
		if err := s.archiver.ArchiveBatch(ctx, batchID, signals); err != nil {
			s.logger.WarnContext(ctx, "archiving batch failed",
				slog.String("batch_id", batchID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.broadcast != nil {
		redacted := make([]domain.Signal, 0, len(signals))
		for _, sig := range signals {
			redacted = append(redacted, sig.Redacted())
		}
		msg, err := json.Marshal(map[string]any{
			"type":    "signals_refreshed",
			"payload": redacted,
		})
		if err == nil {
			s.broadcast.Broadcast(msg)
		}
	}
}

// RunLoop refreshes immediately and then on every tick until ctx is
// cancelled. Refresh errors are logged; the loop keeps running.
func (s *SignalService) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.ErrorContext(ctx, "initial refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.ErrorContext(ctx, "refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// List returns the signals of the current snapshot in assembly order.
func (s *SignalService) List() []domain.Signal {
	return s.current.Load().signals
}

// Get returns one signal from the current snapshot.
func (s *SignalService) Get(id string) (domain.Signal, bool) {
	sig, ok := s.current.Load().byID[id]
	return sig, ok
}

// Status reports the catalog size and when the current snapshot was
// assembled. The refresh time is zero before the first successful refresh.
func (s *SignalService) Status() (int, time.Time) {
	snap := s.current.Load()
	return len(snap.signals), snap.refreshed
}

// Vote records a community up/down vote. Votes live in the persistent
// store only; without one, voting is unavailable.
func (s *SignalService) Vote(ctx context.Context, id string, up bool) error {
	if _, ok := s.Get(id); !ok {
		return fmt.Errorf("service: vote %s: %w", id, domain.ErrNotFound)
	}
	if s.store == nil {
		return fmt.Errorf("service: vote %s: %w", id, domain.ErrStoreDisabled)
	}
	if err := s.store.Vote(ctx, id, up); err != nil {
		return fmt.Errorf("service: vote %s: %w", id, err)
	}
	return nil
}

// NotifyUnlocked reports a confirmed payment to operators. Failures are
// logged and swallowed; notification is never on the request path's
// critical section.
func (s *SignalService) NotifyUnlocked(ctx context.Context, sig domain.Signal) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, "payment_confirmed", "Signal unlocked",
		fmt.Sprintf("signal %s (%s) unlocked for %d", sig.ID, sig.Title, sig.Price)); err != nil {
		s.logger.WarnContext(ctx, "unlock notification failed",
			slog.String("error", err.Error()),
		)
	}
}
