package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/steveyegge/ghtrack/internal/app"
)

// clientBuffer is the number of updates queued per websocket client before
// it is dropped as too slow.
const clientBuffer = 64

// hub fans DataUpdates out to websocket clients. broadcast never blocks,
// since it runs under the app.Context lock.
type hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	send chan []byte
	// dropped is closed when the hub gave up on the client.
	dropped chan struct{}
}

func newHub(log *slog.Logger) *hub {
	return &hub{log: log, clients: make(map[*client]struct{})}
}

func (h *hub) register() *client {
	c := &client{send: make(chan []byte, clientBuffer), dropped: make(chan struct{})}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("websocket client connected", "clients", n)
	return c
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.log.Debug("websocket client disconnected", "clients", len(h.clients))
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(u app.DataUpdate) {
	msg, err := json.Marshal(u)
	if err != nil {
		h.log.Error("encode update", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("websocket client too slow, dropping")
			delete(h.clients, c)
			close(c.dropped)
		}
	}
}
