package scorer

import (
	"fmt"

	"github.com/x402labs/signalfeed/internal/domain"
)

const promptTemplate = `You are an Elite Prediction Market Analyst and Computational CIO.
You evaluate geopolitical, sentiment, and liquidity data to determine the EXACT probability of a market outcome.

MARKET DATA:
platform: %s
title: %s
trading_volume_usd: %.2f
current_implied_odds: %.4f
external_id: %s

CRITICAL OBJECTIVE:
1. Output a specific WIN PROBABILITY (%%) as a float.
2. Provide HIGH-DENSITY, CIO-GRADE reasoning for this probability.
3. Identify critical TAIL RISKS (unexpected events that shift the needle).

RESPONSE STRUCTURE (JSON ONLY):
{
    "win_probability": 0.0,
    "alpha_reasoning": "...",
    "tail_risks": ["...", "..."]
}`

// buildPrompt renders the observation into the scoring prompt. The prompt
// demands a strict JSON object; ParseOpinion handles the collaborator's
// habit of wrapping it anyway.
func buildPrompt(obs domain.MarketObservation) string {
	return fmt.Sprintf(promptTemplate,
		obs.Platform, obs.Title, obs.Volume, obs.CurrentOdds, obs.ExternalID)
}
