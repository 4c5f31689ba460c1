package httpapi

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"bodycheck/internal/events"
)

// Hub fans session events out to every websocket attached to the session.
// Slow clients are dropped rather than blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: map[*Client]struct{}{}}
}

func (h *Hub) Publish(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("hub: encode %s event: %v", e.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Add(conn *websocket.Conn) *Client {
	c := &Client{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Len reports the number of attached clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// WritePump drains the client's queue onto the socket until it closes.
func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
