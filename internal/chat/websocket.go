package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/dromero/tienda-server/internal/domain"
	"github.com/dromero/tienda-server/internal/identity"
)

// WebSocketHandler streams the conversation log to chat widgets. On connect
// the client receives the current snapshot; afterwards it receives the full
// ordered snapshot again on every change until it disconnects.
type WebSocketHandler struct {
	service       *Service
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(service *Service, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		service:       service,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Chat WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := h.service.Broker().Subscribe()
	defer unsubscribe()

	// The dispatcher session lives as long as the widget connection.
	defer h.service.Sessions().Reset(userID, sessionID)

	// Initial snapshot so the widget renders immediately.
	snapshot, err := h.service.Messages(ctx)
	if err != nil {
		slog.Warn("Failed to load initial chat snapshot", "user_id", userID, "error", err)
	} else if err := h.writeSnapshot(ctx, ws, snapshot); err != nil {
		slog.Debug("Failed to send initial chat snapshot", "error", err, "user_id", userID)
		return
	}

	// Reads are only used to detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Chat WebSocket session ended", "user_id", userID, "session_id", sessionID)
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := h.writeSnapshot(ctx, ws, snapshot); err != nil {
				slog.Debug("Chat WebSocket write error", "error", err, "user_id", userID)
				return
			}
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

type snapshotEnvelope struct {
	Type     string               `json:"type"`
	Messages []domain.ChatMessage `json:"mensajes"`
}

func (h *WebSocketHandler) writeSnapshot(ctx context.Context, ws *websocket.Conn, msgs []domain.ChatMessage) error {
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	data, err := json.Marshal(snapshotEnvelope{Type: "snapshot", Messages: msgs})
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
