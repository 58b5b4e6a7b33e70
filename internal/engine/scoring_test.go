package engine

import (
	"testing"

	"github.com/phishplay/phishplay/internal/domain"
)

func TestComputePoints(t *testing.T) {
	t.Parallel()

	trueCues := []string{"urgency_tactic", "link_mismatch", "pii_request"}

	tests := []struct {
		name       string
		correct    bool
		action     domain.Action
		isPhishing bool
		selected   map[string]bool
		want       int
	}{
		{
			name:       "correct flag with no selections",
			correct:    true,
			action:     domain.ActionFlag,
			isPhishing: true,
			selected:   nil,
			want:       10,
		},
		{
			name:       "correct flag with two true cues",
			correct:    true,
			action:     domain.ActionFlag,
			isPhishing: true,
			selected:   map[string]bool{"urgency_tactic": true, "link_mismatch": true},
			want:       20,
		},
		{
			name:       "wrong selections cost nothing",
			correct:    true,
			action:     domain.ActionFlag,
			isPhishing: true,
			selected:   map[string]bool{"urgency_tactic": true, "generic_greeting": true},
			want:       15,
		},
		{
			name:       "correct trust on benign earns no bonus",
			correct:    true,
			action:     domain.ActionTrust,
			isPhishing: false,
			selected:   map[string]bool{"urgency_tactic": true},
			want:       10,
		},
		{
			name:       "flagging benign earns nothing",
			correct:    false,
			action:     domain.ActionFlag,
			isPhishing: false,
			selected:   map[string]bool{"urgency_tactic": true},
			want:       0,
		},
		{
			name:       "trusting phishing earns nothing",
			correct:    false,
			action:     domain.ActionTrust,
			isPhishing: true,
			selected:   nil,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePoints(tt.correct, tt.action, tt.isPhishing, trueCues, tt.selected)
			if got != tt.want {
				t.Errorf("ComputePoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputePointsNeverNegative(t *testing.T) {
	t.Parallel()

	selected := map[string]bool{"a": true, "b": true, "c": true}
	if got := ComputePoints(false, domain.ActionFlag, false, nil, selected); got < 0 {
		t.Errorf("ComputePoints returned negative total %d", got)
	}
}
