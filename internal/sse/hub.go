package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one open event stream. A guardian may hold several, one per
// browser tab.
type Client struct {
	ID         string
	GuardianID uuid.UUID
	Send       chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *GuardianMessage
	mu         sync.RWMutex
}

type GuardianMessage struct {
	GuardianID uuid.UUID
	Event      Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *GuardianMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.GuardianID != msg.GuardianID {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of open streams for guardianID.
func (h *Hub) ClientCount(guardianID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, client := range h.clients {
		if client.GuardianID == guardianID {
			n++
		}
	}
	return n
}

// BroadcastToGuardian queues event for every stream of guardianID. It drops
// the event instead of blocking when the queue is full.
func (h *Hub) BroadcastToGuardian(guardianID uuid.UUID, event Event) bool {
	select {
	case h.broadcast <- &GuardianMessage{GuardianID: guardianID, Event: event}:
		return true
	default:
		return false
	}
}
