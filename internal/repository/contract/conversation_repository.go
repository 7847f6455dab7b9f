package contract

import (
	"context"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	// Create persists the conversation and its participant rows in one
	// transaction.
	Create(ctx context.Context, conv *entity.Conversation, participantIDs []uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	// ListByUser returns the user's conversations ordered by updated_at
	// descending.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error)
	ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}
