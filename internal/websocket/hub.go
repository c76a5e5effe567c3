package websocket

import (
	"log/slog"
	"sync"

	"github.com/vidstream/gateway/internal/types"
)

// Hub maintains the set of open notification connections and fans events out
// to all of them. The set lives in memory only, scoped to process lifetime.
type Hub struct {
	// Open client connections
	clients map[*Client]bool

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Channel of events to broadcast
	broadcast chan *types.Event
}

// NewHub creates a new notifications hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *types.Event, 16),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("notification client connected", slog.Int("clients", h.ClientCount()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			slog.Info("notification client disconnected", slog.Int("clients", h.ClientCount()))

		case event := <-h.broadcast:
			h.broadcastToClients(event)
		}
	}
}

// RegisterClient adds a connection to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a connection from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Broadcast queues an event for delivery to every open connection. The send
// blocks until the hub loop picks the event up, so a burst of completions
// never loses updates; per-connection delivery stays best-effort, a
// connection that cannot accept the write is dropped.
func (h *Hub) Broadcast(event *types.Event) {
	h.broadcast <- event
}

// BroadcastSingleUpdate pushes one updated video record to all connections.
func (h *Hub) BroadcastSingleUpdate(video types.PublicVideo) {
	h.Broadcast(types.NewSingleVideoUpdate(video))
}

// broadcastToClients delivers an event to every registered connection.
func (h *Hub) broadcastToClients(event *types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if err := client.SendEvent(event); err != nil {
			slog.Error("failed to send event to client", slog.String("error", err.Error()))
			// Remove the client if sending fails
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
