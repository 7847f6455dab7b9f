package service

import (
	"context"

	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/repository/contract"
	"venturelink-be/internal/repository/memory"

	"github.com/google/uuid"
)

// IDirectoryService answers membership questions. It is the authorization
// gate in front of every read, write and broadcast touching a conversation.
type IDirectoryService interface {
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ParticipantsOf(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

type directoryService struct {
	convRepo contract.ConversationRepository
	cache    *memory.MembershipCache
}

func NewDirectoryService(convRepo contract.ConversationRepository, cache *memory.MembershipCache) IDirectoryService {
	return &directoryService{
		convRepo: convRepo,
		cache:    cache,
	}
}

func (s *directoryService) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	if s.cache.IsMember(conversationID, userID) {
		return true, nil
	}

	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, apperror.NewTransient("failed to check membership", err)
	}
	if ok {
		s.cache.SetMember(conversationID, userID)
	}
	return ok, nil
}

func (s *directoryService) ParticipantsOf(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.convRepo.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return nil, apperror.NewTransient("failed to load participants", err)
	}
	return ids, nil
}
