package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveAuditWS streams audit events to an operations console. Auth is the
// same bearer check as the REST surface; the stream is read-only.
func (h *Handler) serveAuditWS(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.StudentID(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Kind: "unauthenticated", Message: "missing or invalid bearer token"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.recorder.Subscribe()
	defer cancel()

	// Reader goroutine: we never expect inbound messages, but reading is
	// what surfaces the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Warn("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
