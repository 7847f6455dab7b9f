package contract

import (
	"context"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	// Append persists the message, the sender's implicit read receipt and
	// the conversation updated_at bump in one transaction.
	Append(ctx context.Context, msg *entity.Message) error
	Update(ctx context.Context, msg *entity.Message) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	// ListRecent returns the most recent `limit` messages of a conversation
	// in oldest-first order.
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entity.Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*entity.Message, error)
	// UnreadCount counts messages in the conversation not sent by the user
	// and without a read receipt for the user.
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}
