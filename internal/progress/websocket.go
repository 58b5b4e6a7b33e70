package progress

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/phishplay/phishplay/internal/identity"
)

// WebSocketHandler upgrades HTTP requests to progress feed connections.
type WebSocketHandler struct {
	feed  *Feed
	isDev bool
}

// NewWebSocketHandler creates the feed upgrade handler.
func NewWebSocketHandler(feed *Feed, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{feed: feed, isDev: isDev}
}

// ServeHTTP accepts a WebSocket connection and keeps it registered until the
// client disconnects. The feed is push-only; inbound messages are drained
// and ignored.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.isDev,
	})
	if err != nil {
		slog.Error("Progress feed accept failed", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Progress feed close", "error", closeErr, "user_id", userID)
		}
	}()

	h.feed.Register(userID, sessionID, ws)
	defer h.feed.Unregister(userID, sessionID, ws)

	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Debug("Progress feed read ended", "error", err, "user_id", userID)
			}
			return
		}
	}
}
