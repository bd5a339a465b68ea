package websocket

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Hub manages the set of active clients and broadcasts snapshots.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	last       []byte
	log        logrus.FieldLogger
}

// NewHub creates a new Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's event loop. It must be run in a separate goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("hub started")
	defer h.log.Info("hub stopped")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.last != nil {
				h.deliver(c, h.last)
			}
			h.log.WithField("remoteAddr", c.remoteAddr()).Debug("client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.log.WithField("remoteAddr", c.remoteAddr()).Debug("client unregistered")
		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// Broadcast sends msg to all connected clients and to clients that connect
// later. It returns false once the hub has stopped.
func (h *Hub) Broadcast(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// deliver queues msg for c, dropping the client when its queue is full.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.WithField("remoteAddr", c.remoteAddr()).Warn("client too slow, dropping connection")
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

// closeAll closes every client queue during shutdown; the write pumps then
// send a close frame and hang up.
func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
}
