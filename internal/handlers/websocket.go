package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local operator surface
	},
}

// WebSocketHandler streams pipeline and workflow events to connected
// clients. Each connection holds its own event subscription; a slow
// client loses events rather than blocking publishers.
type WebSocketHandler struct {
	events interfaces.EventService
	logger arbor.ILogger
}

func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		events: events,
		logger: logger,
	}
}

// HandleWebSocket upgrades the connection and forwards events until
// the client disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.events.Subscribe()
	defer cancel()

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	// Reader drains client frames so close is detected.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			h.logger.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client disconnected")
			return
		}
	}
}
