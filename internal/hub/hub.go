// Package hub fans out lobby and room events to subscribers without ever
// blocking the publisher.
package hub

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Event types.
const (
	TypeRefresh     = "refresh"
	TypeRoomUpdate  = "room_update"
	TypeGameStarted = "game_started"
	TypeGameUpdate  = "game_update"
	TypeGameOver    = "game_over"
	TypeRoomClosed  = "room_closed"
)

const lobbyKey = ""

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Event is the envelope delivered to subscribers.
type Event struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Subscription is a single subscriber's event stream. C is closed when the
// subscription is removed or its room is closed.
type Subscription struct {
	C <-chan Event

	key string
	ch  chan Event
}

// RoomID returns the room the subscription follows, or "" for the lobby.
func (s *Subscription) RoomID() string {
	return s.key
}

// Hub manages lobby and per-room subscriptions
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	buffer      int
	dropped     atomic.Uint64
	logger      *zap.Logger
}

// New creates a hub. A non-positive buffer selects DefaultBuffer.
func New(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// SubscribeLobby subscribes to lobby refresh events
func (h *Hub) SubscribeLobby() *Subscription {
	return h.subscribe(lobbyKey)
}

// SubscribeRoom subscribes to events for a room
func (h *Hub) SubscribeRoom(roomID string) *Subscription {
	return h.subscribe(roomID)
}

func (h *Hub) subscribe(key string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, key: key, ch: ch}
	if h.subscribers[key] == nil {
		h.subscribers[key] = make(map[*Subscription]struct{})
	}
	h.subscribers[key][sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription. Calling it more than once is harmless.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.key]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.key)
	}
	close(sub.ch)
}

// PublishLobby sends an event to every lobby subscriber
func (h *Hub) PublishLobby(event Event) {
	h.publish(lobbyKey, event)
}

// PublishRoom sends an event to every subscriber of roomID
func (h *Hub) PublishRoom(roomID string, event Event) {
	event.RoomID = roomID
	h.publish(roomID, event)
}

// PublishRoomChange sends a room_update to the room and a refresh to the lobby.
func (h *Hub) PublishRoomChange(roomID string, snapshot any) {
	h.PublishRoom(roomID, Event{Type: TypeRoomUpdate, Payload: snapshot})
	h.PublishLobby(Event{Type: TypeRefresh, RoomID: roomID})
}

func (h *Hub) publish(key string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[key] {
		select {
		case sub.ch <- event:
		default:
			// Channel full, skip
			h.dropped.Add(1)
			h.logger.Debug("dropped event for slow subscriber",
				zap.String("type", event.Type),
				zap.String("room_id", key))
		}
	}
}

// CloseRoom closes every subscription of a room. A final room_closed event is
// offered to each subscriber first.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := Event{Type: TypeRoomClosed, RoomID: roomID}
	for sub := range h.subscribers[roomID] {
		select {
		case sub.ch <- closed:
		default:
		}
		close(sub.ch)
	}
	delete(h.subscribers, roomID)
}

// Subscribers returns the number of subscriptions for a room, or the lobby when roomID is "".
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[roomID])
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
