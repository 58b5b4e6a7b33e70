package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/domain"
	"github.com/phishplay/phishplay/internal/engine"
	"github.com/phishplay/phishplay/internal/identity"
	"github.com/phishplay/phishplay/internal/telemetry"
)

// TrainingHandler handles profile, session, scoring, and telemetry
// endpoints.
type TrainingHandler struct {
	*Handler
	eventLog *telemetry.Logger
}

// NewTrainingHandler creates the training API handler.
func NewTrainingHandler(base *Handler, eventLog *telemetry.Logger) *TrainingHandler {
	return &TrainingHandler{Handler: base, eventLog: eventLog}
}

// RegisterRoutes registers all training routes.
func (h *TrainingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.Ping)
		r.Get("/me", h.GetMe)
		r.Post("/profile", h.UpdateProfile)
		r.Get("/cues", h.ListCues)
		r.Get("/themes", h.ListThemes)

		r.Post("/session/start", h.StartSession)
		r.Get("/session", h.GetSession)
		r.Post("/session/decide", h.Decide)
		r.Post("/session/elements/toggle", h.ToggleElement)
		r.Post("/session/submit", h.Submit)
		r.Post("/session/advance", h.Advance)
		r.Get("/next_email", h.NextEmail)

		r.Post("/score_text", h.ScoreText)
		r.Post("/event", h.LogEvent)
		r.Get("/events", h.ListEvents)
		r.Get("/dashboard", h.Dashboard)
	})
}

// engineError maps engine and catalog errors to HTTP responses.
func engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		Error(w, http.StatusNotFound, "no more scenarios available")
	case errors.Is(err, engine.ErrNoSession):
		Error(w, http.StatusNotFound, "no active session")
	case errors.Is(err, engine.ErrInvalidState):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusBadRequest, err.Error())
	}
}

// parseAction normalizes the wire action. The original client sends
// "report" where the engine says "flag".
func parseAction(s string) (domain.Action, bool) {
	switch s {
	case "flag", "report":
		return domain.ActionFlag, true
	case "trust":
		return domain.ActionTrust, true
	default:
		return "", false
	}
}

// Ping is a trivial liveness endpoint.
func (h *TrainingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"msg": "pong"})
}

// GetMe returns the current user's profile.
func (h *TrainingHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      user.UserID,
		"username":     user.Username,
		"theme":        user.EffectiveTheme(),
		"difficulty":   user.Difficulty,
		"phase":        user.EffectivePhase(),
		"total_points": user.TotalPoints,
	})
}

// UpdateProfile stores the user's training preferences.
func (h *TrainingHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req struct {
		Theme      string `json:"theme"`
		Difficulty string `json:"difficulty"`
		Phase      string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phase := domain.Phase(req.Phase)
	if phase != domain.PhasePre && phase != domain.PhasePost {
		phase = domain.PhasePre
	}

	err := h.repo.UpdateProfile(r.Context(), userID,
		domain.Theme(req.Theme), domain.Difficulty(req.Difficulty), phase)
	if err != nil {
		slog.Error("Failed to update profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListCues returns the cue dictionary for element selection buttons.
func (h *TrainingHandler) ListCues(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.catalog.Dictionary().Cues())
}

// ListThemes returns the themes with available scenarios.
func (h *TrainingHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.catalog.Themes())
}

// StartSession begins a fresh training session using the profile theme.
func (h *TrainingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	snap, err := h.engine.StartSession(userID, user.EffectiveTheme())
	if err != nil {
		engineError(w, err)
		return
	}

	JSON(w, http.StatusOK, snap)
}

// GetSession returns the current session snapshot.
func (h *TrainingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	snap, err := h.engine.Snapshot(userID)
	if err != nil {
		engineError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// NextEmail returns the scenario currently presented to the user, starting
// a session first if none is active. This mirrors the original per-user
// next-email fetch.
func (h *TrainingHandler) NextEmail(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	snap, err := h.engine.Snapshot(userID)
	if errors.Is(err, engine.ErrNoSession) {
		user, userErr := h.repo.GetUser(r.Context(), userID)
		if userErr != nil || user == nil {
			Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		snap, err = h.engine.StartSession(userID, user.EffectiveTheme())
	}
	if err != nil {
		engineError(w, err)
		return
	}

	if snap.Scenario == nil {
		Error(w, http.StatusNotFound, "no more scenarios available")
		return
	}
	JSON(w, http.StatusOK, snap.Scenario)
}

// Decide records the user's decision on the current scenario.
func (h *TrainingHandler) Decide(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, ok := parseAction(req.Action)
	if !ok {
		Error(w, http.StatusBadRequest, "action must be flag or trust")
		return
	}

	out, snap, err := h.engine.Decide(userID, action)
	if err != nil {
		engineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"outcome": out,
		"state":   snap,
	})
}

// ToggleElement toggles one cue in the element selection.
func (h *TrainingHandler) ToggleElement(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req struct {
		CueID string `json:"cue_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CueID == "" {
		Error(w, http.StatusBadRequest, "cue_id is required")
		return
	}

	snap, err := h.engine.ToggleElement(userID, req.CueID)
	if err != nil {
		engineError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// Submit scores the flagged scenario with the selected elements.
func (h *TrainingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	out, snap, err := h.engine.Submit(userID)
	if err != nil {
		engineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"outcome": out,
		"state":   snap,
	})
}

// Advance moves past the analysis view to the next scenario, or ends the
// session when the cap is reached.
func (h *TrainingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	snap, done, err := h.engine.Advance(userID)
	if err != nil {
		engineError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"state": snap,
		"done":  done,
	})
}

// ScoreText runs the keyword detector over arbitrary text.
func (h *TrainingHandler) ScoreText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	JSON(w, http.StatusOK, engine.ScoreText(req.Text))
}

// LogEvent accepts an externally reported telemetry event and persists it.
func (h *TrainingHandler) LogEvent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var ev telemetry.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.UserID == "" {
		ev.UserID = userID
	}
	ev = telemetry.NewEvent(ev)

	if err := h.repo.SaveEvent(r.Context(), ev); err != nil {
		slog.Error("Failed to save event", "error", err, "event_id", ev.EventID)
		Error(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	if h.eventLog != nil {
		h.eventLog.Log(ev)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"event_id": ev.EventID,
	})
}

// ListEvents returns the user's most recent telemetry events.
func (h *TrainingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.repo.ListEvents(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	JSON(w, http.StatusOK, events)
}

// Dashboard compares the user's pre- and post-training phase summaries.
func (h *TrainingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	pre, err := h.repo.GetPhaseSummary(r.Context(), userID, domain.PhasePre)
	if err != nil {
		slog.Error("Failed to load pre-phase summary", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}
	post, err := h.repo.GetPhaseSummary(r.Context(), userID, domain.PhasePost)
	if err != nil {
		slog.Error("Failed to load post-phase summary", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}

	resp := map[string]interface{}{
		"pre":  pre,
		"post": post,
	}
	if pre != nil && post != nil {
		resp["improvement"] = engine.Compare(*pre, *post)
	}
	JSON(w, http.StatusOK, resp)
}
