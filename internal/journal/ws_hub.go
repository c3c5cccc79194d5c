// Package journal: WebSocket hub for real-time journal updates.
package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/montanasport9-stack/maestriadotrader/internal/auth"
	"github.com/montanasport9-stack/maestriadotrader/internal/metrics"
	"github.com/montanasport9-stack/maestriadotrader/internal/model"
)

const (
	EventTradeCreated = "trade_created"
	EventTradeDeleted = "trade_deleted"

	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// WSMessage is a JSON message sent to the owner's WebSocket clients.
type WSMessage struct {
	Type    string       `json:"type"`
	OwnerID string       `json:"-"`
	TradeID string       `json:"trade_id"`
	Trade   *model.Trade `json:"trade,omitempty"`
}

type wsClient struct {
	conn    *websocket.Conn
	ownerID string
}

type envelope struct {
	ownerID string
	data    []byte
}

// WSHub manages WebSocket connections and delivers each journal change
// only to connections of the owner it belongs to.
type WSHub struct {
	issuer     *auth.Issuer
	clients    map[*wsClient]bool
	broadcast  chan envelope
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mu         sync.Mutex
}

// NewWSHub creates a new WebSocket hub. Connections authenticate with the
// token query parameter since browsers cannot set headers on upgrade.
func NewWSHub(issuer *auth.Issuer) *WSHub {
	return &WSHub{
		issuer:     issuer,
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop until ctx is done. Must be called
// in a goroutine.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(total))
			slog.Info("ws client connected", "owner", c.ownerID, "total", total)

		case c := <-h.unregister:
			h.drop(c)

		case env := <-h.broadcast:
			for _, c := range h.ownerClients(env.ownerID) {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, env.data); err != nil {
					h.drop(c)
				}
			}
		}
	}
}

// Broadcast queues msg for the clients of msg.OwnerID.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envelope{ownerID: msg.OwnerID, data: data}:
	default:
		// Drop if buffer full to avoid blocking the request path.
		slog.Warn("ws broadcast dropped", "type", msg.Type, "owner", msg.OwnerID)
	}
}

// Clients returns the number of registered connections.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *WSHub) ownerClients(ownerID string) []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*wsClient
	for c := range h.clients {
		if c.ownerID == ownerID {
			out = append(out, c)
		}
	}
	return out
}

func (h *WSHub) drop(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.conn.Close()
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WebSocketClients.Set(float64(total))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins; the token is the gate.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/ws?token=
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.issuer.Verify(token)
	if err != nil {
		writeError(w, "invalid token", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	c := &wsClient{conn: conn, ownerID: claims.Subject}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}()
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies. WriteControl
	// may run concurrently with the hub's writes.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.Lock()
			_, ok := h.clients[c]
			h.mu.Unlock()
			if !ok {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}()
}
