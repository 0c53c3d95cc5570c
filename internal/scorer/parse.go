package scorer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x402labs/signalfeed/internal/domain"
)

// ParseOpinion decodes the raw model output into an AlphaOpinion. The text
// is first unwrapped from incidental formatting (markdown code fences, a
// leading "json" language tag, stray whitespace) and then decoded strictly:
// unknown fields and out-of-range values are errors. Any failure wraps
// domain.ErrScoringFailed so it is indistinguishable from a transport
// failure to the caller.
func ParseOpinion(text string) (domain.AlphaOpinion, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: no JSON object in response", domain.ErrScoringFailed)
	}

	var opinion domain.AlphaOpinion
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opinion); err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: decode opinion: %v", domain.ErrScoringFailed, err)
	}

	if err := opinion.Validate(); err != nil {
		return domain.AlphaOpinion{}, fmt.Errorf("%w: %v", domain.ErrScoringFailed, err)
	}
	return opinion, nil
}

// cleanJSON strips markdown code fences and surrounding noise from model
// output, returning the innermost {...} object text.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Some models emit a bare "json" language tag outside a fence.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "json")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	} else {
		return ""
	}

	return strings.TrimSpace(text)
}
