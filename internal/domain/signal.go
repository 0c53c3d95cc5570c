// Package domain defines the core data model for the signal feed: market
// observations, AI-generated opinions, priced lockable signals, and the
// payment verification vocabulary shared by all other packages.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies the venue an observation was sourced from. It is a
// closed enumeration; free-form platform strings from upstream APIs must be
// converted through ParsePlatform at the data-source boundary.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformSolflare   Platform = "solflare"
)

// ParsePlatform converts a free-form platform name into a Platform. It is
// case-insensitive and returns ErrInvalidPlatform for unknown venues.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "polymarket":
		return PlatformPolymarket, nil
	case "kalshi":
		return PlatformKalshi, nil
	case "solflare":
		return PlatformSolflare, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
}

// Valid reports whether p is one of the supported venues.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPolymarket, PlatformKalshi, PlatformSolflare:
		return true
	}
	return false
}

// MarketObservation is an immutable snapshot of a single market taken during
// one refresh cycle. Observations are not persisted; a fresh set is produced
// on every refresh.
type MarketObservation struct {
	Platform    Platform `json:"platform"`
	Title       string   `json:"title"`
	Volume      float64  `json:"volume"`       // traded volume in USD, non-negative
	CurrentOdds float64  `json:"current_odds"` // implied probability, 0.0-1.0
	ExternalID  string   `json:"external_id"`  // unique per platform
}

// AlphaOpinion is the structured output of the alpha scorer for one
// observation: a win probability on the percentage scale, reasoning text, and
// an ordered list of tail risks. Produced once per observation; immutable.
type AlphaOpinion struct {
	WinProbability float64  `json:"win_probability"` // 0.0-100.0
	Reasoning      string   `json:"alpha_reasoning"`
	TailRisks      []string `json:"tail_risks"`
}

// Validate checks that the opinion is within the documented bounds. A scorer
// response that fails validation is treated the same as a transport failure.
func (o AlphaOpinion) Validate() error {
	if o.WinProbability < 0 || o.WinProbability > 100 {
		return fmt.Errorf("alpha opinion: win probability %v out of range", o.WinProbability)
	}
	if strings.TrimSpace(o.Reasoning) == "" {
		return fmt.Errorf("alpha opinion: empty reasoning")
	}
	return nil
}

// Signal is a priced, lockable prediction record. ID and Price never change
// after assembly; Locked only ever transitions locked -> unlocked, and a
// signal is never re-locked. Community counters are mutated by voting and are
// part of the persisted shape only.
type Signal struct {
	ID             string    `json:"id"`
	MarketID       string    `json:"market_id"`
	Platform       Platform  `json:"platform"`
	Title          string    `json:"title"`
	WinProbability float64   `json:"win_probability"`
	Reasoning      string    `json:"alpha_analysis"`
	TailRisks      []string  `json:"tail_risks"`
	Price          int64     `json:"micropayment_price"` // smallest-unit settlement asset (USDC 1e-6)
	CreatedAt      time.Time `json:"created_at"`
	Locked         bool      `json:"is_locked"`
	CommunityUp    int64     `json:"community_up"`
	CommunityDown  int64     `json:"community_down"`
}

// Redacted returns a copy of the signal safe to expose before payment. Only
// the identifier, title, price, platform, timestamps, and community counters
// survive; the opinion fields are stripped.
func (s Signal) Redacted() Signal {
	s.WinProbability = 0
	s.Reasoning = ""
	s.TailRisks = nil
	s.Locked = true
	return s
}

// Unlocked returns a copy of the signal with the lock released. The zero-ing
// direction never exists: callers unlock a signal, they never re-lock one.
func (s Signal) Unlocked() Signal {
	s.Locked = false
	return s
}
