package livestats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"callcenter-api/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Message is the frame pushed to websocket clients.
type Message struct {
	Event string   `json:"event"`
	Data  Snapshot `json:"data"`
}

const eventUpdate = "update"

var ErrHubClosed = errors.New("livestats: hub closed")

// Hub keeps the set of connected websocket clients. A client that cannot
// keep up is disconnected rather than allowed to block the others.
// Snapshots reach clients in increasing seq order; an older one arriving
// late is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	current  func() Snapshot

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// seq of the last snapshot queued for this client, guarded by Hub.mu.
	seq uint64
}

// NewHub builds a hub. current supplies the snapshot each new client
// receives first.
func NewHub(current func() Snapshot) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The route sits behind token auth; browsers on any allowed
			// origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		current: current,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Broadcast(_ context.Context, snap Snapshot) error {
	b, err := json.Marshal(Message{Event: eventUpdate, Data: snap})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for c := range h.clients {
		if snap.Seq <= c.seq {
			continue
		}
		c.seq = snap.Seq
		select {
		case c.send <- b:
		default:
			h.dropLocked(c)
		}
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	snap := h.current()
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), seq: snap.Seq}

	first, err := json.Marshal(Message{Event: eventUpdate, Data: snap})
	if err != nil {
		conn.Close()
		return
	}
	c.send <- first

	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	log.Debug("live client connected", "clients", h.Clients())

	go c.writePump()
	c.readPump()

	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	log.Debug("live client disconnected")
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// dropLocked removes c and closes its send channel, which ends writePump.
// h.mu must be held.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump discards client frames and returns when the connection dies.
func (c *client) readPump() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
