package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/phishplay/phishplay/internal/domain"
)

func TestManagerSessionLifecycle(t *testing.T) {
	t.Parallel()

	cat := testCatalog(t, phishingScenario)
	mgr := NewManager(cat, 1)

	var scored []Outcome
	var summaries []domain.PhaseSummary
	mgr.OnScored(func(userID string, out Outcome, snap Snapshot) {
		scored = append(scored, out)
	})
	mgr.OnTerminal(func(userID string, summary domain.PhaseSummary) {
		summaries = append(summaries, summary)
	})

	snap, err := mgr.StartSession("user-1", domain.ThemeCampus)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if snap.Scenario == nil {
		t.Fatal("expected a loaded scenario")
	}

	out, _, err := mgr.Decide("user-1", domain.ActionFlag)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if out != nil {
		t.Fatalf("flag on phishing should defer scoring, got %+v", out)
	}
	if len(scored) != 0 {
		t.Fatalf("scored callback fired before submit")
	}

	if _, err := mgr.ToggleElement("user-1", "urgency_tactic"); err != nil {
		t.Fatalf("ToggleElement failed: %v", err)
	}
	out, snap, err = mgr.Submit("user-1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if out == nil || out.Points != 15 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(scored) != 1 || scored[0].ScenarioID != "campus-phish-1" {
		t.Fatalf("scored callbacks = %+v", scored)
	}
	if snap.Step != domain.StepShowingAnalysis {
		t.Fatalf("expected showing_analysis, got %s", snap.Step)
	}

	snap, done, err := mgr.Advance("user-1")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !done || snap.Step != domain.StepTerminal {
		t.Fatalf("done=%v step=%s, want terminal", done, snap.Step)
	}
	if len(summaries) != 1 {
		t.Fatalf("terminal callbacks = %d, want 1", len(summaries))
	}
	if summaries[0].Accuracy != 100 {
		t.Errorf("summary accuracy = %v, want 100", summaries[0].Accuracy)
	}
}

func TestManagerNoSession(t *testing.T) {
	t.Parallel()

	mgr := NewManager(testCatalog(t, benignScenario), 1)

	if _, err := mgr.Snapshot("nobody"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Snapshot: err = %v, want ErrNoSession", err)
	}
	if _, _, err := mgr.Decide("nobody", domain.ActionTrust); !errors.Is(err, ErrNoSession) {
		t.Errorf("Decide: err = %v, want ErrNoSession", err)
	}
	if _, err := mgr.EndSession("nobody"); !errors.Is(err, ErrNoSession) {
		t.Errorf("EndSession: err = %v, want ErrNoSession", err)
	}
}

func TestManagerStartSessionReplacesExisting(t *testing.T) {
	t.Parallel()

	mgr := NewManager(testCatalog(t, benignScenario), 5)
	if _, err := mgr.StartSession("user-1", domain.ThemeCampus); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, _, err := mgr.Decide("user-1", domain.ActionTrust); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}

	snap, err := mgr.StartSession("user-1", domain.ThemeCampus)
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if snap.CompletedCount != 0 {
		t.Errorf("restart should reset counters, completed = %d", snap.CompletedCount)
	}
}

func TestManagerSweepIdle(t *testing.T) {
	t.Parallel()

	mgr := NewManager(testCatalog(t, benignScenario), 5)
	if _, err := mgr.StartSession("user-1", domain.ThemeCampus); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if removed := mgr.SweepIdle(time.Hour); removed != 0 {
		t.Fatalf("fresh session evicted: removed = %d", removed)
	}

	time.Sleep(10 * time.Millisecond)
	if removed := mgr.SweepIdle(time.Millisecond); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := mgr.Snapshot("user-1"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after sweep, got %v", err)
	}
}
