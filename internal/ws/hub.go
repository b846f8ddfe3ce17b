package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks the connected clients of every profile. A profile may have
// several connections open at once, e.g. a browser and the terminal client.
type Hub struct {
	clients    map[int]map[*Client]bool // profileID -> clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[c.profileID]; !ok {
				h.clients[c.profileID] = make(map[*Client]bool)
			}
			h.clients[c.profileID][c] = true
			n := len(h.clients[c.profileID])
			h.mu.Unlock()
			log.Printf("[WS] profile %d connected (%d open)", c.profileID, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.clients[c.profileID]; ok && room[c] {
				delete(room, c)
				close(c.send)
				if len(room) == 0 {
					delete(h.clients, c.profileID)
				}
			}
			h.mu.Unlock()
			log.Printf("[WS] profile %d disconnected", c.profileID)

		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.clients {
				for c := range room {
					close(c.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// join registers c unless the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// SendToProfile delivers message to every connection of a profile and
// returns how many received it.
func (h *Hub) SendToProfile(profileID int, message any) int {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] error marshaling message for profile %d: %v", profileID, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.clients[profileID] {
		select {
		case c.send <- data:
			sent++
		default:
			log.Printf("[WS] send buffer full for profile %d, dropping message", profileID)
		}
	}
	return sent
}

// deliver queues data for a single registered client.
func (h *Hub) deliver(c *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c.profileID][c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Connections returns the number of open connections for a profile.
func (h *Hub) Connections(profileID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}
