package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/JonMunkholm/leadsync/internal/core"
)

// clientBuffer is the number of queued messages per client before events
// are dropped for that client.
const clientBuffer = 64

// Hub fans cycle events out to connected websocket clients.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	send chan []byte
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Handler returns the websocket endpoint. Clients only receive; anything
// they send is read and discarded so closes are noticed.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		// Browsers on other origins are allowed, like the CORS policy.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serve,
	}
}

func (h *Hub) serve(ws *websocket.Conn) {
	c := &hubClient{send: make(chan []byte, clientBuffer)}
	if !h.register(c) {
		ws.Close()
		return
	}
	h.logger.Info("websocket client connected", "remote", ws.Request().RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var discard []byte
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.unregister(c)
		ws.Close()
		h.logger.Info("websocket client disconnected", "remote", ws.Request().RemoteAddr)
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := websocket.Message.Send(ws, string(msg)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish broadcasts every non-skipped outcome of report as a JSON event.
// Slow clients lose events instead of blocking the cycle.
func (h *Hub) Publish(ctx context.Context, report core.CycleReport) error {
	for _, ev := range EventsFromReport(report) {
		msg, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		h.broadcast(msg)
	}
	return nil
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping event")
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
