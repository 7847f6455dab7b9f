package events

import (
	"time"

	"venturelink-be/internal/dto"

	"github.com/google/uuid"
)

// Topics on the in-process event bus. The delivery coordinator publishes,
// the notification service consumes.
const (
	TopicMessageSent         = "chat.message.sent"
	TopicConversationCreated = "chat.conversation.created"
)

type MessageSentEvent struct {
	ConversationId uuid.UUID      `json:"conversation_id"`
	Message        dto.MessageDTO `json:"message"`
	Recipients     []uuid.UUID    `json:"recipients"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

type ConversationCreatedEvent struct {
	Summary    dto.ConversationSummaryDTO `json:"summary"`
	Recipients []uuid.UUID                `json:"recipients"`
	OccurredAt time.Time                  `json:"occurred_at"`
}
