// Package broadcast implements a Hub for pushing recomputed standings to live viewers.
// Clients subscribe to one season; whenever that season's results, round status or
// scoring change, the handler that made the change publishes the new table and every
// subscriber receives it over its server-sent events stream.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Client represents a single connected viewer.
type Client struct {
	SeasonID uuid.UUID   // Which season this client is watching
	Send     chan []byte // Buffered outgoing messages; the stream writer drains it
}

// NewClient creates a client with a small buffer so a slow reader can fall a few
// updates behind before it is dropped.
func NewClient(seasonID uuid.UUID) *Client {
	return &Client{SeasonID: seasonID, Send: make(chan []byte, 16)}
}

// Message is one payload for every client watching a season.
type Message struct {
	SeasonID uuid.UUID
	Data     []byte
}

// Hub manages all active subscriptions, grouped by season ID.
// Registration, unregistration and broadcasts are processed by the Run loop through
// channels; the mutex guards reads of the client map from Subscribers.
type Hub struct {
	clients map[uuid.UUID]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a Hub. Run must be started before any other method is used.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's event loop. It returns after Stop, closing every client.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.SeasonID] == nil {
				h.clients[client.SeasonID] = make(map[*Client]bool)
			}
			h.clients[client.SeasonID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients[msg.SeasonID] {
				select {
				case client.Send <- msg.Data:
				default:
					// Too far behind; drop it rather than block every other viewer.
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.remove(client)
			}

		case <-h.done:
			h.mu.Lock()
			for season, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, season)
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove deletes a client and closes its channel, which ends its stream.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.SeasonID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.SeasonID)
	}
}

// Publish queues data for every client watching the season.
func (h *Hub) Publish(seasonID uuid.UUID, data []byte) {
	select {
	case h.broadcast <- &Message{SeasonID: seasonID, Data: data}:
	case <-h.done:
	}
}

// Register adds a client so it starts receiving the season's updates.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client when its stream ends.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers reports how many clients are watching a season.
func (h *Hub) Subscribers(seasonID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[seasonID])
}

// Stop ends Run. It must be called at most once.
func (h *Hub) Stop() {
	close(h.done)
}
