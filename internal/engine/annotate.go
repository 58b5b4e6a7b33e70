package engine

import (
	"regexp"
	"sort"

	"github.com/phishplay/phishplay/internal/catalog"
)

// SpanState classifies a highlighted span of evidence.
type SpanState string

const (
	// SpanEvidence marks a cue pattern found in the body, shown without any
	// judgement of the user's selection (the trust / benign analysis path).
	SpanEvidence SpanState = "evidence"
	// SpanConfirmed marks evidence for a cue the user correctly selected.
	SpanConfirmed SpanState = "confirmed"
	// SpanMissed marks evidence for a true cue the user failed to select.
	SpanMissed SpanState = "missed"
)

// Span is one annotated region of the original message body, expressed as a
// byte range so the rendering layer decides its own markup.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	CueID string    `json:"cue_id"`
	State SpanState `json:"state"`
}

// Annotate finds every cue pattern occurrence in body for the cues named in
// classification and returns spans over the original text.
//
// Iteration order is fixed so output is reproducible: cue ids ascending,
// then each cue's pattern list in dictionary order. Within one cue a later
// pattern cannot clobber a span already placed by an earlier pattern of the
// same cue. Across cues, the later-processed cue wins on overlap. Patterns
// match case-insensitively. Cues with no patterns contribute no spans.
func Annotate(body string, dict *catalog.Dictionary, classification map[string]SpanState) []Span {
	cueIDs := make([]string, 0, len(classification))
	for id := range classification {
		cueIDs = append(cueIDs, id)
	}
	sort.Strings(cueIDs)

	var spans []Span
	for _, cueID := range cueIDs {
		cue, ok := dict.CueByID(cueID)
		if !ok {
			continue
		}
		state := classification[cueID]
		for _, pattern := range cue.Patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				// Patterns are validated at catalog construction.
				continue
			}
			for _, m := range re.FindAllStringIndex(body, -1) {
				spans = place(spans, Span{Start: m[0], End: m[1], CueID: cueID, State: state})
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})
	return spans
}

// place inserts the candidate span, dropping overlapping spans from
// earlier-processed cues and skipping the candidate when it overlaps a span
// of its own cue.
func place(spans []Span, cand Span) []Span {
	for _, sp := range spans {
		if overlaps(sp, cand) && sp.CueID == cand.CueID {
			// Earlier pattern of the same cue already claimed this region.
			return spans
		}
	}
	kept := make([]Span, 0, len(spans)+1)
	for _, sp := range spans {
		// Later-processed cue wins: drop earlier cues' overlapping spans.
		if !overlaps(sp, cand) {
			kept = append(kept, sp)
		}
	}
	return append(kept, cand)
}

func overlaps(a, b Span) bool {
	return a.Start < b.End && b.Start < a.End
}
