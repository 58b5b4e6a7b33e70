package engine

import (
	"github.com/phishplay/phishplay/internal/domain"
)

// Point values of the scoring policy.
const (
	basePoints      = 10
	perElementBonus = 5
)

// ComputePoints applies the scoring policy: 10 points for a correct
// decision, plus 5 per true cue the user selected. The element bonus is
// granted only when the user flagged a truly phishing scenario — trusting a
// benign message correctly earns no bonus, and flagging a benign message
// earns none either. Wrong selections cost nothing; the total is never
// negative.
func ComputePoints(correct bool, action domain.Action, isPhishing bool, trueCues []string, selected map[string]bool) int {
	points := 0
	if correct {
		points = basePoints
	}

	if action == domain.ActionFlag && isPhishing {
		for _, cueID := range trueCues {
			if selected[cueID] {
				points += perElementBonus
			}
		}
	}

	return points
}
