package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/x402labs/signalfeed/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const upsertQuery = `
	INSERT INTO signals (
		id, market_id, platform, title, win_probability,
		alpha_analysis, tail_risks, price, is_locked,
		community_up, community_down, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		win_probability = EXCLUDED.win_probability,
		alpha_analysis  = EXCLUDED.alpha_analysis,
		tail_risks      = EXCLUDED.tail_risks,
		is_locked       = signals.is_locked AND EXCLUDED.is_locked,
		updated_at      = NOW()`

// UpsertBatch inserts or updates signals in a single batch. Identifier and
// price are never updated on conflict, and the lock state can only move
// toward unlocked.
func (s *SignalStore) UpsertBatch(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sig := range signals {
		tailRisks := sig.TailRisks
		if tailRisks == nil {
			tailRisks = []string{}
		}
		batch.Queue(upsertQuery,
			sig.ID, sig.MarketID, string(sig.Platform), sig.Title, sig.WinProbability,
			sig.Reasoning, tailRisks, sig.Price, sig.Locked,
			sig.CommunityUp, sig.CommunityDown, sig.CreatedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range signals {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert signals batch: %w", err)
		}
	}
	return nil
}

const selectColumns = `
	id, market_id, platform, title, win_probability,
	alpha_analysis, tail_risks, price, is_locked,
	community_up, community_down, created_at`

// GetByID returns a single signal or domain.ErrNotFound.
func (s *SignalStore) GetByID(ctx context.Context, id string) (domain.Signal, error) {
	query := "SELECT " + selectColumns + " FROM signals WHERE id = $1"

	sig, err := scanSignal(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Signal{}, domain.ErrNotFound
		}
		return domain.Signal{}, fmt.Errorf("postgres: get signal %s: %w", id, err)
	}
	return sig, nil
}

// List returns signals ordered newest first.
func (s *SignalStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Signal, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + selectColumns + `
		FROM signals
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate signals: %w", err)
	}
	return signals, nil
}

// Vote atomically increments one of the community counters.
func (s *SignalStore) Vote(ctx context.Context, id string, up bool) error {
	column := "community_down"
	if up {
		column = "community_up"
	}
	query := fmt.Sprintf(
		"UPDATE signals SET %s = %s + 1, updated_at = NOW() WHERE id = $1", column, column)

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: vote signal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of persisted signals.
func (s *SignalStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM signals").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count signals: %w", err)
	}
	return count, nil
}

// scanSignal reads one signal row.
func scanSignal(row pgx.Row) (domain.Signal, error) {
	var sig domain.Signal
	var platform string
	err := row.Scan(
		&sig.ID, &sig.MarketID, &platform, &sig.Title, &sig.WinProbability,
		&sig.Reasoning, &sig.TailRisks, &sig.Price, &sig.Locked,
		&sig.CommunityUp, &sig.CommunityDown, &sig.CreatedAt,
	)
	if err != nil {
		return domain.Signal{}, err
	}
	sig.Platform = domain.Platform(platform)
	return sig, nil
}
