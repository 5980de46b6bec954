// Package spectate serves a read-only live scoreboard over websockets.
package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/century/internal/session"
)

// Hub fans session changes out to connected spectators. It implements
// session.Listener.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger
	clock    quartz.Clock

	mu      sync.RWMutex
	clients map[*client]bool
	latest  []byte
}

// NewHub creates a hub with no clients
func NewHub(logger *log.Logger, clock quartz.Clock) *Hub {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			// Spectators are read-only, so any origin may watch
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.WithPrefix("spectate"),
		clock:   clock,
		clients: make(map[*client]bool),
	}
}

// SessionChanged broadcasts the new scoreboard
func (h *Hub) SessionChanged(v session.View) {
	data, err := json.Marshal(NewSnapshot(v, h.clock.Now()))
	if err != nil {
		h.logger.Error("Failed to encode snapshot", "error", err)
		return
	}

	// queue under the lock so concurrent changes reach every client in order
	h.mu.Lock()
	h.latest = data
	var slow []*client
	for c := range h.clients {
		if !c.trySend(data) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow spectator", "remote", c.remote)
		h.remove(c)
	}
}

// Clients returns the number of connected spectators
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler returns the routes for the feed
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn, h.clock, r.RemoteAddr)
	h.mu.Lock()
	h.clients[c] = true
	// queued under the lock so a concurrent broadcast cannot overtake it
	if h.latest != nil {
		c.trySend(h.latest)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Spectator connected", "remote", c.remote, "total", total)

	go c.writePump()
	c.readPump()
	h.remove(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("Spectator disconnected", "remote", c.remote, "total", total)
	}
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Close disconnects every spectator
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]bool)
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Serve listens on addr until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return h.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until ctx is cancelled.
func (h *Hub) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("Serving scoreboard", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
