package webui

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/airheads/glider-panel/internal/share"
)

const (
	sendQueue    = 16
	writeTimeout = 100 * time.Millisecond
	pingPeriod   = time.Second
)

// Client is one connected browser.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []any
}

// Hub pushes ["state", Snapshot] to every websocket client whenever the store
// changes.
type Hub struct {
	store    *share.Store
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]bool
	closed  bool
}

func NewHub(store *share.Store) *Hub {
	return &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			EnableCompression: true,
		},
		clients: make(map[*Client]bool),
	}
}

func stateMessage(s share.Snapshot) []any {
	return []any{"state", s}
}

// Run broadcasts store changes until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	changes, stop := h.store.Watch()
	defer stop()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			h.broadcast(stateMessage(h.store.Snapshot()))
		}
	}
}

// broadcast never blocks: a client whose queue is full misses the message.
func (h *Hub) broadcast(message []any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("[WS] Client %s queue full, skipping broadcast", client.id)
		}
	}
}

// ServeWS upgrades the request and streams state to the new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Error upgrading %s: %v", r.RemoteAddr, err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []any, sendQueue),
	}

	if !h.register(client) {
		conn.Close()
		return
	}
	log.Printf("[WS] Client %s connected from %s", client.id, r.RemoteAddr)

	go h.readLoop(client)
	go h.writeLoop(client)
}

// register adds c and queues the current state as its first message. Both
// happen under h.mu, which broadcast also holds, so a change made while the
// client connects is either in the initial snapshot or broadcast after it.
// It reports false once the hub has shut down.
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	c.send <- stateMessage(h.store.Snapshot())
	h.clients[c] = true
	return true
}

// readLoop discards anything the browser sends; it exists to notice the
// connection closing.
func (h *Hub) readLoop(c *Client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Client %s read error: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(message); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WS] Client %s write error: %v", c.id, err)
				}
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
		log.Printf("[WS] Client %s disconnected", c.id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutdown"),
			time.Now().Add(writeTimeout))
		client.conn.Close()
		close(client.send)
		delete(h.clients, client)
	}
}

// clientCount returns the number of connected browsers.
func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
