package api

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/domain"
	"github.com/phishplay/phishplay/internal/engine"
	"github.com/phishplay/phishplay/internal/identity"
	"github.com/phishplay/phishplay/internal/store"
)

var testCues = []domain.Cue{
	{ID: "pii_request", Label: "Credential request", Patterns: []string{"verify your identity"}},
	{ID: "urgency_tactic", Label: "Urgency pressure", Patterns: []string{"immediately"}},
}

var phishingScenario = domain.Scenario{
	ID:         "campus-phish-1",
	Theme:      domain.ThemeCampus,
	Sender:     "it-helpdesk@campus-support.xyz",
	Subject:    "Account suspension notice",
	Body:       "Please verify your identity immediately.",
	Cues:       []string{"pii_request", "urgency_tactic"},
	IsPhishing: true,
}

func newTestServer(t *testing.T, scenarios ...domain.Scenario) (*httptest.Server, *http.Client) {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	cat, err := catalog.NewWithSource(scenarios, testCues, rand.NewSource(1))
	if err != nil {
		t.Fatalf("building catalog failed: %v", err)
	}

	mgr := engine.NewManager(cat, 2)
	handler := NewTrainingHandler(NewHandler(repo, mgr, cat), nil)
	health := NewHealthHandler(repo)

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	health.RegisterHealth(r)
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar failed: %v", err)
	}
	return srv, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodGet, srv.URL+"/api/ping", nil)
	if status != http.StatusOK || got["msg"] != "pong" {
		t.Errorf("status=%d body=%v", status, got)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodGet, srv.URL+"/healthz", nil)
	if status != http.StatusOK || got["status"] != "ok" {
		t.Errorf("status=%d body=%v", status, got)
	}
}

func TestMeCreatesAnonymousUser(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodGet, srv.URL+"/api/me", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, got)
	}

	userID, _ := got["user_id"].(string)
	if len(userID) != len("anon_")+32 || userID[:5] != "anon_" {
		t.Errorf("user_id = %q, want anon_<32 hex>", userID)
	}
	if got["theme"] != string(domain.DefaultTheme) {
		t.Errorf("theme = %v, want default", got["theme"])
	}
	if got["phase"] != string(domain.PhasePre) {
		t.Errorf("phase = %v, want pre", got["phase"])
	}

	// Same cookie jar keeps the same identity.
	_, again := doJSON(t, client, http.MethodGet, srv.URL+"/api/me", nil)
	if again["user_id"] != got["user_id"] {
		t.Errorf("identity changed between requests: %v vs %v", again["user_id"], got["user_id"])
	}
}

func TestSessionFlow(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)

	status, state := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/start", nil)
	if status != http.StatusOK {
		t.Fatalf("session/start status = %d, body = %v", status, state)
	}
	if state["step"] != string(domain.StepAwaitingDecision) {
		t.Fatalf("step = %v", state["step"])
	}
	sc, _ := state["scenario"].(map[string]interface{})
	if sc == nil || sc["id"] != "campus-phish-1" {
		t.Fatalf("scenario = %v", state["scenario"])
	}
	if _, leaked := sc["is_phishing"]; leaked {
		t.Error("scenario view must not expose ground truth")
	}
	if _, leaked := sc["cues"]; leaked {
		t.Error("scenario view must not expose cue tags")
	}

	// The original client sends "report"; it must be accepted as a flag.
	status, resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/decide",
		map[string]string{"action": "report"})
	if status != http.StatusOK {
		t.Fatalf("decide status = %d, body = %v", status, resp)
	}
	if resp["outcome"] != nil {
		t.Fatalf("flag on phishing should defer the outcome, got %v", resp["outcome"])
	}
	nested, _ := resp["state"].(map[string]interface{})
	if nested["step"] != string(domain.StepAwaitingElementSelection) {
		t.Fatalf("step = %v", nested["step"])
	}

	status, _ = doJSON(t, client, http.MethodPost, srv.URL+"/api/session/elements/toggle",
		map[string]string{"cue_id": "urgency_tactic"})
	if status != http.StatusOK {
		t.Fatalf("toggle status = %d", status)
	}

	status, resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/session/submit", nil)
	if status != http.StatusOK {
		t.Fatalf("submit status = %d, body = %v", status, resp)
	}
	outcome, _ := resp["outcome"].(map[string]interface{})
	if outcome == nil {
		t.Fatal("submit should return an outcome")
	}
	if outcome["correct"] != true {
		t.Errorf("correct = %v, want true", outcome["correct"])
	}
	if outcome["points"] != float64(15) {
		t.Errorf("points = %v, want 15", outcome["points"])
	}
	if outcome["is_phishing"] != true {
		t.Error("outcome should reveal ground truth")
	}

	status, resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/session/advance", nil)
	if status != http.StatusOK {
		t.Fatalf("advance status = %d, body = %v", status, resp)
	}
	if resp["done"] != false {
		t.Errorf("done = %v, want false before the cap", resp["done"])
	}
}

func TestDecideRejectsUnknownAction(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	if status, _ := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/start", nil); status != http.StatusOK {
		t.Fatalf("session/start status = %d", status)
	}

	status, _ := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/decide",
		map[string]string{"action": "delete"})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestSessionOperationsWithoutSession(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, _ := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/decide",
		map[string]string{"action": "trust"})
	if status != http.StatusNotFound {
		t.Errorf("decide without session: status = %d, want 404", status)
	}
}

func TestSubmitOutOfOrderConflicts(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	if status, _ := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/start", nil); status != http.StatusOK {
		t.Fatalf("session/start failed")
	}

	status, _ := doJSON(t, client, http.MethodPost, srv.URL+"/api/session/submit", nil)
	if status != http.StatusConflict {
		t.Errorf("submit before deciding: status = %d, want 409", status)
	}
}

func TestNextEmailAutoStartsSession(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodGet, srv.URL+"/api/next_email", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, got)
	}
	if got["id"] != "campus-phish-1" {
		t.Errorf("scenario id = %v", got["id"])
	}
}

func TestScoreText(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodPost, srv.URL+"/api/score_text",
		map[string]string{"text": "Please verify your account now"})
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, got)
	}
	if got["score"] != 0.9 {
		t.Errorf("score = %v, want 0.9", got["score"])
	}
	if got["threshold"] != 0.5 {
		t.Errorf("threshold = %v, want 0.5", got["threshold"])
	}
}

func TestLogAndListEvents(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodPost, srv.URL+"/api/event",
		map[string]interface{}{
			"scenario_id": "campus-phish-1",
			"action":      "flag",
			"correct":     true,
			"points":      15,
		})
	if status != http.StatusOK || got["ok"] != true {
		t.Fatalf("status = %d, body = %v", status, got)
	}
	if got["event_id"] == "" {
		t.Error("expected a generated event id")
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var events []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0]["scenario_id"] != "campus-phish-1" {
		t.Errorf("events = %v", events)
	}
}

func TestDashboardWithoutSummaries(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodGet, srv.URL+"/api/dashboard", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, got)
	}
	if got["pre"] != nil || got["post"] != nil {
		t.Errorf("expected empty summaries, got %v", got)
	}
	if _, ok := got["improvement"]; ok {
		t.Error("improvement requires both phases")
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	srv, client := newTestServer(t, phishingScenario)
	status, got := doJSON(t, client, http.MethodPost, srv.URL+"/api/profile",
		map[string]string{"theme": "sci_fi", "difficulty": "hard", "phase": "post"})
	if status != http.StatusOK || got["ok"] != true {
		t.Fatalf("status = %d, body = %v", status, got)
	}

	_, me := doJSON(t, client, http.MethodGet, srv.URL+"/api/me", nil)
	if me["theme"] != "sci_fi" || me["phase"] != "post" {
		t.Errorf("profile not applied: %v", me)
	}
}
