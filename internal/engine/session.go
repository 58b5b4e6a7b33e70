package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/domain"
)

// ErrInvalidState is returned when a session operation is invoked outside
// its legal step. Committed counters are never touched on this path.
var ErrInvalidState = errors.New("engine: operation not legal in current state")

// DefaultSessionLength caps how many scenarios one session presents.
const DefaultSessionLength = 10

// Outcome is the result of scoring one scenario decision.
type Outcome struct {
	ScenarioID   string        `json:"scenario_id"`
	Action       domain.Action `json:"action"`
	Correct      bool          `json:"correct"`
	Points       int           `json:"points"`
	RiskScore    float64       `json:"risk_score"`
	DetectedCues []string      `json:"detected_cues"`
	Spans        []Span        `json:"spans"`
	ElapsedMS    int64         `json:"elapsed_ms"`
	IsPhishing   bool          `json:"is_phishing"`
}

// ScenarioView is the scenario as presented to the learner: ground truth
// and cue tags are withheld until the outcome.
type ScenarioView struct {
	ID         string            `json:"id"`
	Theme      domain.Theme      `json:"theme"`
	Sender     string            `json:"sender"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	Step             domain.PhaseStep `json:"step"`
	Scenario         *ScenarioView    `json:"scenario,omitempty"`
	SelectedElements []string         `json:"selected_elements"`
	LastAction       domain.Action    `json:"last_action,omitempty"`
	CompletedCount   int              `json:"completed_count"`
	CorrectCount     int              `json:"correct_count"`
	TotalPoints      int              `json:"total_points"`
	AccuracyRate     float64          `json:"accuracy_rate"`
	AverageScore     float64          `json:"average_score"`
	GoalProgress     float64          `json:"goal_progress"`
	Level            string           `json:"level"`
	SessionLength    int              `json:"session_length"`
}

// Session drives the per-scenario interaction cycle for one learner and
// accumulates session-level counters. It is not safe for concurrent use;
// the Manager serializes access per session.
type Session struct {
	cat    *catalog.Catalog
	theme  domain.Theme
	scorer *RiskScorer
	length int
	now    func() time.Time

	state       domain.SessionState
	lastOutcome *Outcome

	// Aggregates for the phase summary.
	phishingSeen    int
	phishingTrusted int
	totalElapsed    time.Duration
}

// NewSession creates a session drawing scenarios for theme from cat.
// length <= 0 uses DefaultSessionLength; a nil source gets a fresh
// per-session one so sessions never share random state.
func NewSession(cat *catalog.Catalog, theme domain.Theme, length int, src rand.Source) *Session {
	if length <= 0 {
		length = DefaultSessionLength
	}
	return &Session{
		cat:    cat,
		theme:  theme,
		scorer: NewRiskScorer(src),
		length: length,
		now:    time.Now,
		state: domain.SessionState{
			Step:             domain.StepAwaitingDecision,
			SelectedElements: make(map[string]bool),
		},
	}
}

// LoadNext pulls the next scenario. Legal only at session start (awaiting a
// decision with no scenario loaded); advancing past an analysis loads the
// next scenario through Advance.
func (s *Session) LoadNext() (*domain.Scenario, error) {
	if s.state.Step != domain.StepAwaitingDecision || s.state.CurrentScenario != nil {
		return nil, fmt.Errorf("%w: load next in step %s", ErrInvalidState, s.state.Step)
	}
	return s.loadNext()
}

func (s *Session) loadNext() (*domain.Scenario, error) {
	exclude := make(map[string]bool, len(s.state.SeenIDs))
	for _, id := range s.state.SeenIDs {
		exclude[id] = true
	}

	sc, err := s.cat.Next(s.theme, exclude)
	if err != nil {
		return nil, err
	}

	s.state.CurrentScenario = &sc
	s.state.SeenIDs = append(s.state.SeenIDs, sc.ID)
	s.state.SelectedElements = make(map[string]bool)
	s.state.LastAction = ""
	s.state.StartTime = s.now()
	s.state.Step = domain.StepAwaitingDecision
	s.lastOutcome = nil
	return &sc, nil
}

// Decide records the learner's binary decision. Flagging a truly phishing
// scenario routes into element selection and returns a nil outcome;
// every other combination scores immediately.
func (s *Session) Decide(action domain.Action) (*Outcome, error) {
	if s.state.Step != domain.StepAwaitingDecision || s.state.CurrentScenario == nil {
		return nil, fmt.Errorf("%w: decide in step %s", ErrInvalidState, s.state.Step)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	s.state.LastAction = action

	if action == domain.ActionFlag && s.state.CurrentScenario.IsPhishing {
		s.state.Step = domain.StepAwaitingElementSelection
		return nil, nil
	}

	return s.finalize(action), nil
}

// ToggleElement adds or removes a cue from the learner's selection.
// Legal only during element selection; toggling twice restores the set.
func (s *Session) ToggleElement(cueID string) error {
	if s.state.Step != domain.StepAwaitingElementSelection {
		return fmt.Errorf("%w: toggle element in step %s", ErrInvalidState, s.state.Step)
	}
	if s.state.SelectedElements[cueID] {
		delete(s.state.SelectedElements, cueID)
	} else {
		s.state.SelectedElements[cueID] = true
	}
	return nil
}

// Submit scores the flagged scenario with the current element selection.
func (s *Session) Submit() (*Outcome, error) {
	if s.state.Step != domain.StepAwaitingElementSelection {
		return nil, fmt.Errorf("%w: submit in step %s", ErrInvalidState, s.state.Step)
	}
	return s.finalize(s.state.LastAction), nil
}

// finalize computes the outcome for the current scenario, commits counters,
// and moves to the analysis step.
func (s *Session) finalize(action domain.Action) *Outcome {
	sc := s.state.CurrentScenario
	elapsed := s.now().Sub(s.state.StartTime)

	correct := Classify(action, sc.IsPhishing)
	points := ComputePoints(correct, action, sc.IsPhishing, sc.Cues, s.state.SelectedElements)

	classification := make(map[string]SpanState, len(sc.Cues))
	elementPhase := action == domain.ActionFlag && sc.IsPhishing
	for _, cueID := range sc.Cues {
		switch {
		case !elementPhase:
			classification[cueID] = SpanEvidence
		case s.state.SelectedElements[cueID]:
			classification[cueID] = SpanConfirmed
		default:
			classification[cueID] = SpanMissed
		}
	}

	out := &Outcome{
		ScenarioID:   sc.ID,
		Action:       action,
		Correct:      correct,
		Points:       points,
		RiskScore:    s.scorer.Score(sc),
		DetectedCues: append([]string(nil), sc.Cues...),
		Spans:        Annotate(sc.Body, s.cat.Dictionary(), classification),
		ElapsedMS:    elapsed.Milliseconds(),
		IsPhishing:   sc.IsPhishing,
	}

	s.state.CompletedCount++
	if correct {
		s.state.CorrectCount++
	}
	s.state.TotalPoints += points

	if sc.IsPhishing {
		s.phishingSeen++
		if action == domain.ActionTrust {
			s.phishingTrusted++
		}
	}
	s.totalElapsed += elapsed

	s.state.Step = domain.StepShowingAnalysis
	s.lastOutcome = out
	return out
}

// Advance moves past the analysis view. When the session length cap is
// reached it transitions to the terminal step and reports done=true,
// signalling the session is ready for phase aggregation; otherwise it loads
// the next scenario.
func (s *Session) Advance() (*domain.Scenario, bool, error) {
	if s.state.Step != domain.StepShowingAnalysis {
		return nil, false, fmt.Errorf("%w: advance in step %s", ErrInvalidState, s.state.Step)
	}

	if s.state.CompletedCount >= s.length {
		s.state.Step = domain.StepTerminal
		s.state.CurrentScenario = nil
		return nil, true, nil
	}

	s.state.CurrentScenario = nil
	sc, err := s.loadNext()
	if err != nil {
		return nil, false, err
	}
	return sc, false, nil
}

// Done reports whether the session reached its terminal step.
func (s *Session) Done() bool {
	return s.state.Step == domain.StepTerminal
}

// LastOutcome returns the outcome of the most recently scored scenario,
// or nil before any scoring.
func (s *Session) LastOutcome() *Outcome {
	return s.lastOutcome
}

// Snapshot returns the externally visible session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Step:             s.state.Step,
		SelectedElements: s.state.SelectedElementIDs(),
		LastAction:       s.state.LastAction,
		CompletedCount:   s.state.CompletedCount,
		CorrectCount:     s.state.CorrectCount,
		TotalPoints:      s.state.TotalPoints,
		AccuracyRate:     s.state.AccuracyRate(),
		AverageScore:     s.state.AverageScore(),
		GoalProgress:     s.state.GoalProgress(),
		Level:            s.state.Level(),
		SessionLength:    s.length,
	}
	if sc := s.state.CurrentScenario; sc != nil {
		snap.Scenario = &ScenarioView{
			ID:         sc.ID,
			Theme:      sc.Theme,
			Sender:     sc.Sender,
			Subject:    sc.Subject,
			Body:       sc.Body,
			Difficulty: sc.Difficulty,
		}
	}
	return snap
}

// Summary aggregates the session into a phase summary: click rate is the
// share of phishing scenarios the learner trusted, response time is the
// mean decision latency in seconds, accuracy the share of correct
// decisions.
func (s *Session) Summary() domain.PhaseSummary {
	var sum domain.PhaseSummary
	if s.phishingSeen > 0 {
		sum.ClickRate = float64(s.phishingTrusted) / float64(s.phishingSeen) * 100
	}
	if s.state.CompletedCount > 0 {
		sum.AvgResponseTime = s.totalElapsed.Seconds() / float64(s.state.CompletedCount)
	}
	sum.Accuracy = s.state.AccuracyRate()
	return sum
}
