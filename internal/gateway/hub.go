package gateway

import (
	"context"
	"fmt"
	"sync"

	"drawchat/internal/broadcast"
	"drawchat/pkg/logx"
)

// Hub tracks live connections by session id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	log logx.Logger
}

func NewHub(log logx.Logger) *Hub {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     log.With(logx.String("component", "hub")),
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if old, ok := h.clients[c.id]; ok && old != c {
		old.close()
	}
	h.clients[c.id] = c
	h.log.Debug("connection registered", logx.String("session", c.id), logx.Int("connections", len(h.clients)))
	return true
}

// unregister reports whether c was still the live connection for its id.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.clients[c.id]
	if !ok || cur != c {
		c.close()
		return false
	}
	delete(h.clients, c.id)
	c.close()
	h.log.Debug("connection unregistered", logx.String("session", c.id), logx.Int("connections", len(h.clients)))
	return true
}

// Deliver enqueues payload for the connection at address. It fails with
// broadcast.ErrGone when no live connection has that address, and with the
// context error when the connection's buffer stays full until ctx is done.
func (h *Hub) Deliver(ctx context.Context, address string, payload []byte) error {
	h.mu.RLock()
	c := h.clients[address]
	h.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("connection %s: %w", address, broadcast.ErrGone)
	}

	select {
	case <-c.done:
		return fmt.Errorf("connection %s closed: %w", address, broadcast.ErrGone)
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return fmt.Errorf("connection %s closed: %w", address, broadcast.ErrGone)
	case <-ctx.Done():
		return fmt.Errorf("connection %s: %w", address, ctx.Err())
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close releases every connection and refuses new ones. The write pumps send
// a close frame and shut their sockets, which ends the read pumps.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, c := range h.clients {
		c.close()
	}
	h.log.Info("hub closed", logx.Int("connections", len(h.clients)))
}
