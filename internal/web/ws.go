package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rook-computer/composer/internal/state"
)

type wsMessage struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation,omitempty"`
	Message    string `json:"message,omitempty"`
}

const wsWriteTimeout = 5 * time.Second

// handleWebSocket streams pointer events from the browser into the session and
// pushes a "frame" message whenever a new frame has been applied.
func handleWebSocket(w http.ResponseWriter, r *http.Request, cfg APIV1Config) {
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if cfg.AllowAnyOrigin {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		cfg.Logger.Errorf("ws", "upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	send := func(msg wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(msg)
	}

	frames, unsubscribe := cfg.Session.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case gen := <-frames:
				if err := send(wsMessage{Type: "frame", Generation: gen}); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// A dropped connection ends any gesture in progress, like the pointer leaving the surface.
	defer func() {
		leaveCtx, leaveCancel := context.WithTimeout(context.Background(), time.Second)
		defer leaveCancel()
		_, _ = cfg.Session.Submit(leaveCtx, state.PointerLeave{})
	}()

	for {
		var req pointerRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cfg.Logger.Infof("ws", "connection closed: %v", err)
			}
			return
		}
		ev, err := req.event()
		if err != nil {
			if send(wsMessage{Type: "error", Message: err.Error()}) != nil {
				return
			}
			continue
		}
		if _, err := cfg.Session.Submit(ctx, ev); err != nil {
			cfg.Logger.Errorf("ws", "pointer event rejected: %v", err)
			return
		}
	}
}
