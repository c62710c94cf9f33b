package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"mealquest/internal/remote"
)

// watchHub tracks websocket subscribers per user and pushes merged records
// to them. This is the "changes from other devices" path of the sync
// contract.
type watchHub struct {
	mu       sync.Mutex
	writeMu  sync.Mutex // serializes pushes; gorilla conns allow one writer
	conns    map[string]map[*websocket.Conn]bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newWatchHub(logger *slog.Logger) *watchHub {
	return &watchHub{
		conns: map[string]map[*websocket.Conn]bool{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *watchHub) serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("watch upgrade failed", "user", userID, "err", err)
		return
	}

	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = map[*websocket.Conn]bool{}
	}
	h.conns[userID][conn] = true
	h.mu.Unlock()

	// Block reading until the client goes away; we never expect inbound
	// frames beyond close/ping.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns[userID], conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *watchHub) broadcast(userID string, rec remote.Record) {
	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range targets {
		if err := conn.WriteJSON(rec); err != nil {
			h.logger.Debug("watch push failed", "user", userID, "err", err)
			h.mu.Lock()
			delete(h.conns[userID], conn)
			h.mu.Unlock()
			_ = conn.Close()
		}
	}
}
