package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/phishplay/phishplay/internal/catalog"
	"github.com/phishplay/phishplay/internal/domain"
)

// ErrNoSession is returned when an operation targets a user without an
// active session.
var ErrNoSession = errors.New("engine: no active session for user")

// ScoredFunc is invoked after a scenario outcome has been committed to the
// session counters. Implementations must not block; delivery failures must
// never surface to the learner.
type ScoredFunc func(userID string, out Outcome, snap Snapshot)

// TerminalFunc is invoked when a session reaches its terminal step, with the
// completed phase summary.
type TerminalFunc func(userID string, summary domain.PhaseSummary)

// Manager hosts one session per user. Sessions are isolated: each has its
// own lock and its own randomness source, so operations against different
// users never interlock.
type Manager struct {
	cat    *catalog.Catalog
	length int

	onScored   ScoredFunc
	onTerminal TerminalFunc

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

type managedSession struct {
	mu         sync.Mutex
	sess       *Session
	lastActive time.Time
}

// NewManager creates a session manager over the catalog. length <= 0 uses
// DefaultSessionLength.
func NewManager(cat *catalog.Catalog, length int) *Manager {
	if length <= 0 {
		length = DefaultSessionLength
	}
	return &Manager{
		cat:      cat,
		length:   length,
		sessions: make(map[string]*managedSession),
	}
}

// OnScored registers the post-scoring callback.
func (m *Manager) OnScored(fn ScoredFunc) { m.onScored = fn }

// OnTerminal registers the session-completion callback.
func (m *Manager) OnTerminal(fn TerminalFunc) { m.onTerminal = fn }

// StartSession creates (or replaces) the user's session and loads the first
// scenario. An existing session for the user is discarded.
func (m *Manager) StartSession(userID string, theme domain.Theme) (Snapshot, error) {
	sess := NewSession(m.cat, theme, m.length, rand.NewSource(rand.Int63()))
	if _, err := sess.LoadNext(); err != nil {
		return Snapshot{}, err
	}

	ms := &managedSession{sess: sess, lastActive: time.Now()}
	m.mu.Lock()
	m.sessions[userID] = ms
	m.mu.Unlock()

	slog.Info("Session started", "user_id", userID, "theme", theme)
	return sess.Snapshot(), nil
}

// EndSession removes the user's session, returning its snapshot.
func (m *Manager) EndSession(userID string) (Snapshot, error) {
	m.mu.Lock()
	ms, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNoSession
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	slog.Info("Session ended", "user_id", userID, "completed", ms.sess.Snapshot().CompletedCount)
	return ms.sess.Snapshot(), nil
}

// Snapshot returns the current session state for the user.
func (m *Manager) Snapshot(userID string) (Snapshot, error) {
	ms, err := m.get(userID)
	if err != nil {
		return Snapshot{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.sess.Snapshot(), nil
}

// Decide applies the user's decision to their session. The returned outcome
// is nil when the session entered element selection instead of scoring.
func (m *Manager) Decide(userID string, action domain.Action) (*Outcome, Snapshot, error) {
	ms, err := m.get(userID)
	if err != nil {
		return nil, Snapshot{}, err
	}

	ms.mu.Lock()
	out, err := ms.sess.Decide(action)
	ms.lastActive = time.Now()
	snap := ms.sess.Snapshot()
	ms.mu.Unlock()
	if err != nil {
		return nil, Snapshot{}, err
	}

	if out != nil {
		m.notifyScored(userID, *out, snap)
	}
	return out, snap, nil
}

// ToggleElement toggles a cue in the user's element selection.
func (m *Manager) ToggleElement(userID, cueID string) (Snapshot, error) {
	ms, err := m.get(userID)
	if err != nil {
		return Snapshot{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.sess.ToggleElement(cueID); err != nil {
		return Snapshot{}, err
	}
	ms.lastActive = time.Now()
	return ms.sess.Snapshot(), nil
}

// Submit scores the user's flagged scenario with their element selection.
func (m *Manager) Submit(userID string) (*Outcome, Snapshot, error) {
	ms, err := m.get(userID)
	if err != nil {
		return nil, Snapshot{}, err
	}

	ms.mu.Lock()
	out, err := ms.sess.Submit()
	ms.lastActive = time.Now()
	snap := ms.sess.Snapshot()
	ms.mu.Unlock()
	if err != nil {
		return nil, Snapshot{}, err
	}

	m.notifyScored(userID, *out, snap)
	return out, snap, nil
}

// Advance moves the user's session past the analysis view. done is true
// when the session reached its cap; the terminal callback then receives the
// completed phase summary.
func (m *Manager) Advance(userID string) (Snapshot, bool, error) {
	ms, err := m.get(userID)
	if err != nil {
		return Snapshot{}, false, err
	}

	ms.mu.Lock()
	_, done, err := ms.sess.Advance()
	ms.lastActive = time.Now()
	snap := ms.sess.Snapshot()
	var summary domain.PhaseSummary
	if done {
		summary = ms.sess.Summary()
	}
	ms.mu.Unlock()
	if err != nil {
		return Snapshot{}, false, err
	}

	if done && m.onTerminal != nil {
		m.onTerminal(userID, summary)
	}
	return snap, done, nil
}

// SweepIdle evicts sessions inactive for longer than ttl and returns how
// many were removed.
func (m *Manager) SweepIdle(ttl time.Duration) int {
	threshold := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, ms := range m.sessions {
		if ms.lastActive.Before(threshold) {
			delete(m.sessions, userID)
			removed++
			slog.Info("Idle session evicted", "user_id", userID)
		}
	}
	return removed
}

func (m *Manager) get(userID string) (*managedSession, error) {
	m.mu.RLock()
	ms, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, userID)
	}
	return ms, nil
}

func (m *Manager) notifyScored(userID string, out Outcome, snap Snapshot) {
	if m.onScored != nil {
		m.onScored(userID, out, snap)
	}
}
