// Package engine implements the scenario evaluation and session progression
// core: decision classification, risk scoring, evidence annotation, the
// scoring policy, the per-scenario state machine, and the pre/post phase
// comparison. It has no rendering or transport dependency.
package engine

import (
	"github.com/phishplay/phishplay/internal/domain"
)

// Classify determines whether the user's decision was correct against the
// scenario's ground truth. Flagging a phishing message or trusting a benign
// one is correct; everything else is not.
func Classify(action domain.Action, isPhishing bool) bool {
	return (action == domain.ActionFlag && isPhishing) ||
		(action == domain.ActionTrust && !isPhishing)
}
