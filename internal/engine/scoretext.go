package engine

import (
	"strings"
)

// TextScore is the result of scoring raw message text outside a session.
type TextScore struct {
	Score     float64         `json:"score"`
	TopTokens []string        `json:"top_tokens"`
	Cues      map[string]bool `json:"cues"`
	Threshold float64         `json:"threshold"`
}

// textScoreThreshold is the decision boundary reported alongside the score.
const textScoreThreshold = 0.5

// ScoreText runs the keyword detector over arbitrary text. It is the
// stateless scoring endpoint's backend: high risk when credential-related
// keywords appear, low otherwise, with per-cue hit booleans.
func ScoreText(text string) TextScore {
	lower := strings.ToLower(text)

	score := 0.1
	if strings.Contains(lower, "verify") || strings.Contains(lower, "password") {
		score = 0.9
	}

	tokens := strings.Fields(lower)
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}

	return TextScore{
		Score:     score,
		TopTokens: tokens,
		Cues: map[string]bool{
			"urgency":       strings.Contains(lower, "verify"),
			"link_mismatch": strings.Contains(lower, "http"),
			"pii_request":   strings.Contains(lower, "password"),
		},
		Threshold: textScoreThreshold,
	}
}
