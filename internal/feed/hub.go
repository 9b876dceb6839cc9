// Package feed broadcasts training report lines to WebSocket clients.
package feed

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// Per-client queue length and the default time a single write may take
const (
	sendBuffer          = 64
	DefaultWriteTimeout = 5 * time.Second
)

type client struct {
	ws   *websocket.Conn
	send chan string
}

// Hub fans every published line out to the connected clients. Publish never
// blocks: each client has its own queue drained by its own goroutine, lines
// are dropped when a queue is full, and a client whose write times out is
// disconnected.
type Hub struct {
	WriteTimeout time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		WriteTimeout: DefaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
}

// Handler returns the WebSocket endpoint
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(ws *websocket.Conn) {
	c := &client{ws: ws, send: make(chan string, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.write(c)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		close(c.send)
		h.mu.Unlock()
		ws.Close()
	}()

	// clients only listen; block until they hang up or the writer gives up
	for {
		var data string
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if err != io.EOF {
				fmt.Printf("feed: read error: %v\n", err)
			}
			return
		}
	}
}

func (h *Hub) write(c *client) {
	for line := range c.send {
		if err := c.ws.SetWriteDeadline(time.Now().Add(h.WriteTimeout)); err != nil {
			c.ws.Close()
			return
		}
		if err := websocket.Message.Send(c.ws, line); err != nil {
			// closing unblocks the reader in serve, which unregisters the client
			c.ws.Close()
			return
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many lines were discarded because a client fell behind
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish queues line for every client without waiting on the network
func (h *Hub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- line:
		default:
			h.dropped++
		}
	}
}

// ListenAndServe serves the hub at /ws on addr
func (h *Hub) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())
	return http.ListenAndServe(addr, mux)
}
