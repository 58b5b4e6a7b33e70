// Package telemetry records training events: an async NDJSON event log plus
// a best-effort HTTP collector client. Both paths are fire-and-forget; a
// delivery failure is logged and swallowed, never surfaced to the learner.
package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/phishplay/phishplay/internal/domain"
)

// Event is one scored scenario decision.
type Event struct {
	EventID          string        `json:"event_id"`
	UserID           string        `json:"user_id"`
	ScenarioID       string        `json:"scenario_id"`
	Phase            domain.Phase  `json:"phase"`
	Action           domain.Action `json:"action"`
	ElapsedMS        int64         `json:"elapsed_ms"`
	RiskScore        float64       `json:"risk_score"`
	Correct          bool          `json:"correct"`
	SelectedElements []string      `json:"selected_elements"`
	Points           int           `json:"points"`
	Timestamp        time.Time     `json:"timestamp"`
}

// NewEvent stamps the event with a fresh id and the current time if the
// caller left them empty.
func NewEvent(ev Event) Event {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev
}
