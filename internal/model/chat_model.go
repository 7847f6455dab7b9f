package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	// Bumped on every new message; sort key for conversation lists.
	UpdatedAt time.Time `gorm:"index:idx_conversations_updated"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type ConversationParticipant struct {
	ConversationId uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_participants_user"`
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

type Message struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_conv_created,priority:1"`
	SenderId       uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_sender"`
	Content        string    `gorm:"type:text;not null"`
	IsEdited       bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conv_created,priority:2"`
	UpdatedAt      time.Time
}

func (Message) TableName() string {
	return "messages"
}

type MessageReceipt struct {
	MessageId uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_receipts_user"`
	ReadAt    time.Time `gorm:"not null"`
}

func (MessageReceipt) TableName() string {
	return "message_receipts"
}
