// Package ws implements the /sync/ws change-notify wakeup (SPEC_FULL.md
// §4.2.5): a best-effort ping telling a user's other live replicas that a
// push landed, so they can pull sooner than their next poll tick. It carries
// no payload; the receiving client still calls /sync/pull to fetch rows.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/authtoken"
)

var changedMessage = []byte(`{"event":"changed"}`)

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeChanged() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, changedMessage)
}

// Hub tracks one live websocket per (userId, clientId) and satisfies
// sync.Notifier.
type Hub struct {
	mu       sync.RWMutex
	conns    map[int]map[string]*conn
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		conns: make(map[int]map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.With("component", "sync_ws_hub"),
	}
}

// NotifyUserChanged implements sync.Notifier.
func (h *Hub) NotifyUserChanged(userID int, exceptClientID string) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns[userID]))
	for clientID, c := range h.conns[userID] {
		if clientID == exceptClientID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.writeChanged(); err != nil {
			h.log.Debug("notify write failed", "user_id", userID, "error", err)
		}
	}
}

func (h *Hub) register(userID int, clientID string, ws *websocket.Conn) *conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[string]*conn)
	}
	if prev, ok := h.conns[userID][clientID]; ok {
		prev.ws.Close()
	}
	c := &conn{ws: ws}
	h.conns[userID][clientID] = c
	return c
}

func (h *Hub) unregister(userID int, clientID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID][clientID] == c {
		delete(h.conns[userID], clientID)
		if len(h.conns[userID]) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Handler authenticates the connection via query params (browsers cannot set
// Authorization headers on WebSocket upgrades) and then just blocks reading
// so it notices disconnects; the hub is a write-only fanout.
func (h *Hub) Handler(tokens authtoken.Servicer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		clientID := r.URL.Query().Get("clientId")
		if token == "" || clientID == "" {
			http.Error(w, "missing token or clientId", http.StatusUnauthorized)
			return
		}

		userID, err := tokens.Validate(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid or expired bearer token", http.StatusUnauthorized)
			return
		}

		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debug("ws upgrade failed", "error", err)
			return
		}

		c := h.register(userID, clientID, ws)
		defer func() {
			h.unregister(userID, clientID, c)
			ws.Close()
		}()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}
}
