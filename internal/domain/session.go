package domain

import (
	"sort"
	"time"
)

// Action is the user's binary decision on a scenario.
type Action string

const (
	ActionFlag  Action = "flag"
	ActionTrust Action = "trust"
)

// Valid reports whether the action is one of the two known decisions.
func (a Action) Valid() bool {
	return a == ActionFlag || a == ActionTrust
}

// PhaseStep is the interaction step of the current scenario cycle.
type PhaseStep string

const (
	StepAwaitingDecision         PhaseStep = "awaiting_decision"
	StepAwaitingElementSelection PhaseStep = "awaiting_element_selection"
	StepShowingAnalysis          PhaseStep = "showing_analysis"
	StepTerminal                 PhaseStep = "terminal"
)

// Phase labels the pre-training vs post-training measurement period.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// PointsGoal is the session points target shown as progress toward 100%.
const PointsGoal = 100

// SessionState holds per-session progress for one learner.
// It is mutated exclusively by the session state machine.
type SessionState struct {
	CurrentScenario  *Scenario
	Step             PhaseStep
	SelectedElements map[string]bool
	LastAction       Action
	CompletedCount   int
	CorrectCount     int
	TotalPoints      int
	StartTime        time.Time
	SeenIDs          []string
}

// AccuracyRate returns the percentage of correct decisions, 0 when no
// scenario has been completed yet.
func (s *SessionState) AccuracyRate() float64 {
	if s.CompletedCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.CompletedCount) * 100
}

// AverageScore returns mean points per completed scenario.
func (s *SessionState) AverageScore() float64 {
	if s.CompletedCount == 0 {
		return 0
	}
	return float64(s.TotalPoints) / float64(s.CompletedCount)
}

// GoalProgress returns progress toward the points goal as a percentage,
// capped at 100.
func (s *SessionState) GoalProgress() float64 {
	p := float64(s.TotalPoints) / float64(PointsGoal) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Level returns the learner level label for the current point total.
func (s *SessionState) Level() string {
	switch {
	case s.TotalPoints >= 80:
		return "Expert"
	case s.TotalPoints >= 60:
		return "Advanced"
	case s.TotalPoints >= 40:
		return "Intermediate"
	case s.TotalPoints >= 20:
		return "Beginner"
	default:
		return "Newbie"
	}
}

// SelectedElementIDs returns the selected cue ids in ascending order.
func (s *SessionState) SelectedElementIDs() []string {
	ids := make([]string, 0, len(s.SelectedElements))
	for id := range s.SelectedElements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PhaseSummary is the aggregate of one completed measurement phase.
// ClickRate and Accuracy are percentages; AvgResponseTime is in seconds.
type PhaseSummary struct {
	ClickRate       float64 `json:"click_rate"`
	AvgResponseTime float64 `json:"avg_response_time"`
	Accuracy        float64 `json:"accuracy"`
}
