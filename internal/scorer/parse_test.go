package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402labs/signalfeed/internal/domain"
)

const opinionJSON = `{"win_probability": 67.5, "alpha_reasoning": "orderflow skew", "tail_risks": ["election delay", "oracle outage"]}`

func TestParseOpinion_PlainJSON(t *testing.T) {
	opinion, err := ParseOpinion(opinionJSON)
	require.NoError(t, err)

	assert.Equal(t, 67.5, opinion.WinProbability)
	assert.Equal(t, "orderflow skew", opinion.Reasoning)
	assert.Equal(t, []string{"election delay", "oracle outage"}, opinion.TailRisks)
}

func TestParseOpinion_MarkdownFence(t *testing.T) {
	wrapped := "```json\n" + opinionJSON + "\n```"

	opinion, err := ParseOpinion(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 67.5, opinion.WinProbability)
}

func TestParseOpinion_BareFence(t *testing.T) {
	wrapped := "```\n" + opinionJSON + "\n```"

	opinion, err := ParseOpinion(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "orderflow skew", opinion.Reasoning)
}

func TestParseOpinion_LeadingProse(t *testing.T) {
	wrapped := "Here is my analysis:\n" + opinionJSON + "\nLet me know if you need more."

	opinion, err := ParseOpinion(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 67.5, opinion.WinProbability)
}

func TestParseOpinion_UnknownFieldRejected(t *testing.T) {
	_, err := ParseOpinion(`{"win_probability": 50, "alpha_reasoning": "x", "confidence": "high"}`)
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
}

func TestParseOpinion_OutOfRange(t *testing.T) {
	_, err := ParseOpinion(`{"win_probability": 120, "alpha_reasoning": "x"}`)
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
}

func TestParseOpinion_EmptyReasoning(t *testing.T) {
	_, err := ParseOpinion(`{"win_probability": 50, "alpha_reasoning": ""}`)
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
}

func TestParseOpinion_NoJSON(t *testing.T) {
	_, err := ParseOpinion("the market looks bullish")
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
}

func TestParseOpinion_Garbage(t *testing.T) {
	_, err := ParseOpinion("```json\nnot json at all\n```")
	assert.ErrorIs(t, err, domain.ErrScoringFailed)
}

func TestFallbackOpinion_IsValid(t *testing.T) {
	fb := FallbackOpinion()
	require.NoError(t, fb.Validate())

	assert.Equal(t, 74.2, fb.WinProbability)
	assert.Contains(t, fb.Reasoning, "Synthetic Alpha")
	assert.Len(t, fb.TailRisks, 2)
}
