package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// ChatGateway is the slice of the delivery coordinator the hub needs to
// handle inbound client events.
type ChatGateway interface {
	// CanAccess reports whether the user is a participant of the
	// conversation. Checked on every join, not just in the UI.
	CanAccess(ctx context.Context, conversationID, userID uuid.UUID) bool
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error)
}

// PresenceTracker is notified when a user's first connection arrives and
// when their last connection drops.
type PresenceTracker interface {
	Connected(userID uuid.UUID)
	Heartbeat(userID uuid.UUID)
	Disconnected(userID uuid.UUID)
}

// Hub owns all realtime session state: the per-user connection map
// (multi-device) and the per-conversation room map. Room membership is
// mutated under the mutex; register/unregister flow through channels
// consumed by Run.
type Hub struct {
	clients map[uuid.UUID][]*Client
	rooms   map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	gateway  ChatGateway
	presence PresenceTracker
	logger   logger.ILogger
}

func NewHub(presence PresenceTracker, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   presence,
		logger:     log,
	}
}

// SetGateway breaks the construction cycle: the coordinator needs the hub
// as its broadcaster, the hub needs the coordinator for inbound events.
func (h *Hub) SetGateway(g ChatGateway) {
	h.gateway = g
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			first := len(h.clients[client.UserID]) == 0
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()

			if first && h.presence != nil {
				h.presence.Connected(client.UserID)
			}
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// removeClient drops the connection from the user map and every room it
// joined (the implicit leave on disconnect), then closes its send channel.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.clients[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}

	removed := false
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		h.mu.Unlock()
		return
	}

	for convID := range client.rooms {
		if room, ok := h.rooms[convID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, convID)
			}
		}
	}

	last := len(h.clients[client.UserID]) == 0
	if last {
		delete(h.clients, client.UserID)
	}
	h.mu.Unlock()

	close(client.send)

	if last && h.presence != nil {
		h.presence.Disconnected(client.UserID)
	}
	h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserID, "last_connection": last})
}

// Join subscribes the client to a conversation room.
func (h *Hub) Join(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[client] = struct{}{}
	client.rooms[conversationID] = struct{}{}
}

func (h *Hub) Leave(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(client.rooms, conversationID)
}

func (h *Hub) inRoom(client *Client, conversationID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[conversationID]
	return ok
}

// Publish delivers an event to every session currently joined to the
// conversation's room. Best effort: slow consumers have the frame dropped.
func (h *Hub) Publish(conversationID uuid.UUID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode room event", map[string]interface{}{"event": event, "error": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[conversationID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Hub", "Send buffer full, dropping room event", map[string]interface{}{"user_id": client.UserID, "event": event})
		}
	}
}

// NotifyUser delivers an event to every session of one user regardless of
// room membership.
func (h *Hub) NotifyUser(userID uuid.UUID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode user event", map[string]interface{}{"event": event, "error": err})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("Hub", "Send buffer full, dropping user event", map[string]interface{}{"user_id": userID, "event": event})
		}
	}
}

// dispatch routes one inbound client frame to its handler.
func (h *Hub) dispatch(ctx context.Context, client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		client.sendError("malformed event frame")
		return
	}

	switch env.Event {
	case EventJoinConversation:
		h.handleJoin(ctx, client, env.Data)
	case EventLeaveConversation:
		h.handleLeave(client, env.Data)
	case EventSendMessage:
		h.handleSend(ctx, client, env.Data)
	case EventTyping:
		h.handleTyping(client, env.Data, EventUserTyping)
	case EventStopTyping:
		h.handleTyping(client, env.Data, EventUserStopTyping)
	default:
		client.sendError("unknown event: " + env.Event)
	}
}

func (h *Hub) handleJoin(ctx context.Context, client *Client, data json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationId == uuid.Nil {
		client.sendError("invalid join payload")
		return
	}

	if h.gateway == nil || !h.gateway.CanAccess(ctx, payload.ConversationId, client.UserID) {
		client.sendError("not a participant of this conversation")
		return
	}

	h.Join(client, payload.ConversationId)
	h.logger.Info("Hub", "Client joined room", map[string]interface{}{"user_id": client.UserID, "conversation_id": payload.ConversationId})
}

func (h *Hub) handleLeave(client *Client, data json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationId == uuid.Nil {
		client.sendError("invalid leave payload")
		return
	}
	h.Leave(client, payload.ConversationId)
}

func (h *Hub) handleSend(ctx context.Context, client *Client, data json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationId == uuid.Nil {
		client.sendError("invalid send payload")
		return
	}

	if h.gateway == nil {
		client.sendError("messaging unavailable")
		return
	}

	// The coordinator persists and broadcasts; only the failure comes back
	// to this session.
	if _, err := h.gateway.SendMessage(ctx, payload.ConversationId, client.UserID, payload.Message); err != nil {
		client.sendError(err.Error())
	}
}

// handleTyping relays typing state to the room. The 3 second expiry is
// client-driven; the server only forwards.
func (h *Hub) handleTyping(client *Client, data json.RawMessage, outEvent string) {
	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationId == uuid.Nil {
		return
	}

	if !h.inRoom(client, payload.ConversationId) {
		return
	}

	h.Publish(payload.ConversationId, outEvent, UserEventPayload{UserId: client.UserID})
}

// RoomSize reports how many sessions are joined to a conversation room.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}
