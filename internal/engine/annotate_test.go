package engine

import (
	"reflect"
	"testing"

	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/domain"
)

func testDictionary(t *testing.T, cues []domain.Cue) *catalog.Dictionary {
	t.Helper()
	dict, err := catalog.NewDictionary(cues)
	if err != nil {
		t.Fatalf("NewDictionary failed: %v", err)
	}
	return dict
}

func TestAnnotateFindsCuePatterns(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "pii_request", Label: "Credential request", Patterns: []string{"verify your identity"}},
		{ID: "urgency_tactic", Label: "Urgency pressure", Patterns: []string{"immediately"}},
	})

	body := "Please verify your identity immediately or lose access."
	got := Annotate(body, dict, map[string]SpanState{
		"pii_request":    SpanMissed,
		"urgency_tactic": SpanConfirmed,
	})

	want := []Span{
		{Start: 7, End: 27, CueID: "pii_request", State: SpanMissed},
		{Start: 28, End: 39, CueID: "urgency_tactic", State: SpanConfirmed},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Annotate() = %+v, want %+v", got, want)
	}
	if text := body[got[0].Start:got[0].End]; text != "verify your identity" {
		t.Errorf("span text = %q, want the original body region", text)
	}
}

func TestAnnotateNoMatchesYieldsNoSpans(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "urgency_tactic", Patterns: []string{"immediately"}},
	})

	got := Annotate("The library opens at nine.", dict, map[string]SpanState{
		"urgency_tactic": SpanEvidence,
	})
	if len(got) != 0 {
		t.Errorf("expected no spans, got %+v", got)
	}
}

func TestAnnotateLaterCueWinsOverlap(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "a_cue", Patterns: []string{"urgent action"}},
		{ID: "b_cue", Patterns: []string{"action required"}},
	})

	got := Annotate("urgent action required", dict, map[string]SpanState{
		"a_cue": SpanEvidence,
		"b_cue": SpanEvidence,
	})

	want := []Span{{Start: 7, End: 22, CueID: "b_cue", State: SpanEvidence}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Annotate() = %+v, want %+v", got, want)
	}
}

func TestAnnotateSameCueEarlierPatternWins(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "pii_request", Patterns: []string{"verify your", "your identity"}},
	})

	got := Annotate("verify your identity", dict, map[string]SpanState{
		"pii_request": SpanEvidence,
	})

	want := []Span{{Start: 0, End: 11, CueID: "pii_request", State: SpanEvidence}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Annotate() = %+v, want %+v", got, want)
	}
}

func TestAnnotateCaseInsensitive(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "urgency_tactic", Patterns: []string{"immediately"}},
	})

	got := Annotate("Act IMMEDIATELY.", dict, map[string]SpanState{
		"urgency_tactic": SpanEvidence,
	})
	if len(got) != 1 || got[0].Start != 4 || got[0].End != 15 {
		t.Errorf("expected one span at [4,15), got %+v", got)
	}
}

func TestAnnotateSkipsPatternlessAndUnknownCues(t *testing.T) {
	t.Parallel()

	dict := testDictionary(t, []domain.Cue{
		{ID: "poor_grammar", Patterns: nil},
	})

	got := Annotate("anything at all", dict, map[string]SpanState{
		"poor_grammar": SpanEvidence,
		"no_such_cue":  SpanEvidence,
	})
	if len(got) != 0 {
		t.Errorf("expected no spans, got %+v", got)
	}
}
