// Package ws implements the local WebSocket fan-out half of the event bus:
// a hub of per-workflow client connections, fed by a ws.Observer that plugs
// into the shared observer.Manager.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one open WebSocket connection, scoped to a single workflow ID so
// /ws/executions/{workflow_id} only receives events for that workflow.
type Client struct {
	ID         string
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	workflowID string
}

// Hub tracks connected clients and the channels used to register, remove,
// and broadcast to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a Hub and starts its run loop in the background.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Broadcast sends data to every client subscribed to workflowID. Clients
// whose send buffer is full are dropped rather than blocking the caller.
func (h *Hub) Broadcast(workflowID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.workflowID != "" && c.workflowID != workflowID {
			continue
		}
		select {
		case c.send <- data:
		default:
			go h.Unregister(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
