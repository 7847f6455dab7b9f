package websocket

import (
	"encoding/json"

	"venturelink-be/internal/dto"

	"github.com/google/uuid"
)

// Client -> server events.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventSendMessage       = "send-message"
	EventTyping            = "typing"
	EventStopTyping        = "stop-typing"
)

// Server -> client events.
const (
	EventNewMessage             = "new-message"
	EventUserTyping             = "user-typing"
	EventUserStopTyping         = "user-stop-typing"
	EventNewConversation        = "new-conversation"
	EventNewMessageNotification = "new-message-notification"
	EventMessagesRead           = "messages-read"
	EventMessageEdited          = "message-edited"
	EventError                  = "error"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinPayload struct {
	ConversationId uuid.UUID `json:"conversationId"`
}

type TypingPayload struct {
	ConversationId uuid.UUID `json:"conversationId"`
	UserId         uuid.UUID `json:"userId"`
}

type SendMessagePayload struct {
	ConversationId uuid.UUID `json:"conversationId"`
	Message        string    `json:"message"`
}

type UserEventPayload struct {
	UserId uuid.UUID `json:"userId"`
}

type ReadStatePayload struct {
	ConversationId uuid.UUID   `json:"conversationId"`
	UserId         uuid.UUID   `json:"userId"`
	MessageIds     []uuid.UUID `json:"messageIds"`
}

type MessageNotificationPayload struct {
	ConversationId uuid.UUID      `json:"conversationId"`
	Message        dto.MessageDTO `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
