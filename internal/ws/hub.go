package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// userEvent routes an event to the rooms of specific users. Admins receives
// a copy in the admin room as well.
type userEvent struct {
	UserIDs []uuid.UUID
	Admins  bool
	Event   Event
}

// adminRoom collects every connected admin. uuid.Nil is never a user ID.
var adminRoom = uuid.Nil

// Hub maintains the set of active clients and broadcasts messages to them.
// Each user has a room; a user with several tabs open has several clients.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *userEvent
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			rooms := append([]uuid.UUID(nil), event.UserIDs...)
			if event.Admins {
				rooms = append(rooms, adminRoom)
			}

			h.mu.Lock()
			seen := make(map[uuid.UUID]bool, len(rooms))
			for _, room := range rooms {
				if seen[room] {
					continue
				}
				seen[room] = true
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// Client's send buffer is full, drop it
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove closes a client's send channel and cleans up empty rooms.
// Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, room)
	}
}

// BroadcastToUsers sends an event to every connection of the given users,
// and to connected admins when admins is true.
// Events sent after the hub has stopped are dropped.
func (h *Hub) BroadcastToUsers(userIDs []uuid.UUID, admins bool, event Event) {
	select {
	case h.broadcast <- &userEvent{UserIDs: userIDs, Admins: admins, Event: event}:
	case <-h.done:
	}
}

// Connections returns the number of open connections in a user's room.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
