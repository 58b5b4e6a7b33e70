package domain

// Cue is one category of deceptive signal (urgency tactic, brand
// impersonation, ...) with the phrase patterns that count as evidence of it
// in a message body. A cue with no patterns is legal: it can still be
// selected and scored, it just cannot be auto-highlighted.
type Cue struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Patterns []string `json:"patterns,omitempty"`
}
