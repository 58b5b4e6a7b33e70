// Package progress provides a WebSocket feed that pushes session state
// snapshots to connected tabs.
package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const pushTimeout = 5 * time.Second

// Feed manages active WebSocket connections for users, keyed by user id and
// tab session id.
type Feed struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewFeed creates a new progress feed.
func NewFeed() *Feed {
	return &Feed{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds a new WebSocket connection for a user/session. A previous
// connection for the same tab session is closed and replaced.
func (f *Feed) Register(userID, sessionID string, conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.active[userID]; !exists {
		f.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := f.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	f.active[userID][sessionID] = conn
	slog.Info("Progress feed registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a WebSocket connection for a user/session.
func (f *Feed) Unregister(userID, sessionID string, conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sessions, ok := f.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(f.active, userID)
			}
			slog.Info("Progress feed unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser forcefully terminates all active connections for a user.
func (f *Feed) CloseUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sessions, ok := f.active[userID]
	if !ok {
		return
	}

	for sid, conn := range sessions {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
		slog.Info("Progress feed connection closed", "user_id", userID, "session_id", sid)
	}
	delete(f.active, userID)
}

// Push sends v as a JSON text message to every connection of the user.
// Delivery is best-effort; a failed write is logged and the connection left
// for its read loop to reap.
func (f *Feed) Push(userID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Progress feed failed to marshal message", "error", err, "user_id", userID)
		return
	}

	f.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(f.active[userID]))
	for _, conn := range f.active[userID] {
		conns = append(conns, conn)
	}
	f.mu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Warn("Progress feed write failed", "error", err, "user_id", userID)
		}
		cancel()
	}
}
