package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant is the membership edge between a user and a conversation.
// Membership never changes after creation.
type Participant struct {
	ConversationId uuid.UUID
	UserId         uuid.UUID
	JoinedAt       time.Time
}

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	SenderId       uuid.UUID
	Content        string
	IsEdited       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MessageReceipt records that a user has seen a message. The sender gets one
// implicitly at send time.
type MessageReceipt struct {
	MessageId uuid.UUID
	UserId    uuid.UUID
	ReadAt    time.Time
}

// ConversationSummary is the denormalized listing row for a user's inbox.
type ConversationSummary struct {
	Conversation *Conversation
	Participants []*User
	LastMessage  *Message
	UnreadCount  int64
}
