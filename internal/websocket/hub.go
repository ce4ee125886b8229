package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a row-level change notification scoped to one household.
type Message struct {
	HouseholdID int64          `json:"-"`
	Type        string         `json:"type"`
	Entity      string         `json:"entity"`
	Action      string         `json:"action"`
	ID          int64          `json:"id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(householdID int64, entity, action string, id int64, extra map[string]any) Message {
	return Message{
		HouseholdID: householdID,
		Type:        fmt.Sprintf("%s_%s", entity, action),
		Entity:      entity,
		Action:      action,
		ID:          id,
		Extra:       extra,
	}
}

const subscriberBufferSize = 16

type subscriber struct {
	householdID int64
	ch          chan Message
}

// Hub fans change notifications out to the WebSocket clients and in-process
// subscribers of the message's household. Delivery never blocks the
// publisher: a full buffer drops the message.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	subscribers map[*subscriber]struct{}
	logger      *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Subscribe returns a channel receiving the household's messages. cancel
// detaches the subscription and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(householdID int64) (<-chan Message, func()) {
	s := &subscriber{householdID: householdID, ch: make(chan Message, subscriberBufferSize)}
	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, s)
			close(s.ch)
			h.mu.Unlock()
		})
	}
}

// Broadcast sends a message to every client and subscriber of its household.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.householdID != msg.HouseholdID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "type", msg.Type)
		}
	}
	for s := range h.subscribers {
		if s.householdID != msg.HouseholdID {
			continue
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of in-process subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
