package service

import (
	"context"
	"strings"
	"time"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/repository/contract"
	"venturelink-be/internal/repository/specification"

	"github.com/google/uuid"
)

const (
	// MaxMessageLength bounds message content size in characters.
	MaxMessageLength = 5000
	// DefaultHistoryLimit is how many recent messages a history fetch
	// returns when the caller does not ask for a specific amount.
	DefaultHistoryLimit = 100
)

// ReadResult reports what MarkRead actually changed.
type ReadResult struct {
	NewlyMarked int
	// ByConversation groups the newly-marked message ids per conversation
	// so the coordinator can emit one read-state event per room.
	ByConversation map[uuid.UUID][]uuid.UUID
}

// IChatService is the durable message store: conversations, participants,
// messages and read receipts.
type IChatService interface {
	CreateConversation(ctx context.Context, creatorID uuid.UUID, otherUserIDs []uuid.UUID) (*entity.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error)
	EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*entity.Message, error)
	MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (*ReadResult, error)
	GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, limit int) ([]*entity.Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error)
}

type chatService struct {
	convRepo    contract.ConversationRepository
	msgRepo     contract.MessageRepository
	receiptRepo contract.ReceiptRepository
	userRepo    contract.UserRepository
	directory   IDirectoryService
}

func NewChatService(
	convRepo contract.ConversationRepository,
	msgRepo contract.MessageRepository,
	receiptRepo contract.ReceiptRepository,
	userRepo contract.UserRepository,
	directory IDirectoryService,
) IChatService {
	return &chatService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		directory:   directory,
	}
}

// CreateConversation creates a conversation between the creator and the
// given users. Repeated calls with the same participant set create distinct
// conversations; dedupe happens client-side if at all.
func (s *chatService) CreateConversation(ctx context.Context, creatorID uuid.UUID, otherUserIDs []uuid.UUID) (*entity.ConversationSummary, error) {
	seen := map[uuid.UUID]struct{}{creatorID: {}}
	participantIDs := []uuid.UUID{creatorID}
	for _, id := range otherUserIDs {
		if _, dup := seen[id]; dup || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		participantIDs = append(participantIDs, id)
	}

	if len(participantIDs) < 2 {
		return nil, apperror.NewValidation("a conversation needs at least two distinct participants")
	}

	users, err := s.userRepo.FindAll(ctx, specification.ByIDs{IDs: participantIDs})
	if err != nil {
		return nil, apperror.NewTransient("failed to load participants", err)
	}
	if len(users) != len(participantIDs) {
		return nil, apperror.NewNotFound("one or more participants do not exist")
	}

	now := time.Now().UTC()
	conv := &entity.Conversation{
		Id:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.convRepo.Create(ctx, conv, participantIDs); err != nil {
		return nil, apperror.NewTransient("failed to create conversation", err)
	}

	return &entity.ConversationSummary{
		Conversation: conv,
		Participants: users,
		LastMessage:  nil,
		UnreadCount:  0,
	}, nil
}

func (s *chatService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.NewValidation("message content cannot be empty")
	}
	if len([]rune(content)) > MaxMessageLength {
		return nil, apperror.NewValidation("message content exceeds the 5000 character limit")
	}

	conv, err := s.convRepo.FindOne(ctx, specification.ByID{ID: conversationID})
	if err != nil {
		return nil, apperror.NewTransient("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperror.NewNotFound("conversation not found")
	}

	ok, err := s.directory.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewPermission("sender is not a participant of this conversation")
	}

	now := time.Now().UTC()
	msg := &entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationID,
		SenderId:       senderID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, apperror.NewTransient("failed to save message", err)
	}

	return msg, nil
}

func (s *chatService) EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*entity.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.NewValidation("message content cannot be empty")
	}
	if len([]rune(content)) > MaxMessageLength {
		return nil, apperror.NewValidation("message content exceeds the 5000 character limit")
	}

	msg, err := s.msgRepo.FindOne(ctx, specification.ByID{ID: messageID})
	if err != nil {
		return nil, apperror.NewTransient("failed to load message", err)
	}
	if msg == nil {
		return nil, apperror.NewNotFound("message not found")
	}
	if msg.SenderId != editorID {
		return nil, apperror.NewPermission("only the sender can edit a message")
	}

	msg.Content = content
	msg.IsEdited = true
	msg.UpdatedAt = time.Now().UTC()
	if err := s.msgRepo.Update(ctx, msg); err != nil {
		return nil, apperror.NewTransient("failed to update message", err)
	}

	return msg, nil
}

// MarkRead creates receipts for the given messages. Idempotent: already-read
// messages and the reader's own messages are skipped, never an error.
// Messages in conversations the reader does not belong to are skipped too.
func (s *chatService) MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (*ReadResult, error) {
	result := &ReadResult{ByConversation: make(map[uuid.UUID][]uuid.UUID)}
	if len(messageIDs) == 0 {
		return result, nil
	}

	msgs, err := s.msgRepo.FindAll(ctx, specification.ByIDs{IDs: messageIDs})
	if err != nil {
		return nil, apperror.NewTransient("failed to load messages", err)
	}

	allowed := make(map[uuid.UUID]bool)
	readAt := time.Now().UTC()
	var candidates []*entity.Message
	var receipts []*entity.MessageReceipt

	for _, msg := range msgs {
		if msg.SenderId == readerID {
			continue
		}
		ok, known := allowed[msg.ConversationId]
		if !known {
			ok, err = s.directory.IsParticipant(ctx, msg.ConversationId, readerID)
			if err != nil {
				return nil, err
			}
			allowed[msg.ConversationId] = ok
		}
		if !ok {
			continue
		}
		candidates = append(candidates, msg)
		receipts = append(receipts, &entity.MessageReceipt{
			MessageId: msg.Id,
			UserId:    readerID,
			ReadAt:    readAt,
		})
	}

	if len(receipts) == 0 {
		return result, nil
	}

	newly, err := s.receiptRepo.CreateBatch(ctx, receipts)
	if err != nil {
		return nil, apperror.NewTransient("failed to save read receipts", err)
	}
	result.NewlyMarked = int(newly)

	if newly > 0 {
		for _, msg := range candidates {
			result.ByConversation[msg.ConversationId] = append(result.ByConversation[msg.ConversationId], msg.Id)
		}
	}
	return result, nil
}

// GetMessages returns the most recent `limit` messages, oldest first.
// This is a truncation, not pagination.
func (s *chatService) GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, limit int) ([]*entity.Message, error) {
	conv, err := s.convRepo.FindOne(ctx, specification.ByID{ID: conversationID})
	if err != nil {
		return nil, apperror.NewTransient("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperror.NewNotFound("conversation not found")
	}

	ok, err := s.directory.IsParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewPermission("requester is not a participant of this conversation")
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	msgs, err := s.msgRepo.ListRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, apperror.NewTransient("failed to load messages", err)
	}
	return msgs, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewTransient("failed to list conversations", err)
	}

	summaries := make([]*entity.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		participantIDs, err := s.convRepo.ParticipantIDs(ctx, conv.Id)
		if err != nil {
			return nil, apperror.NewTransient("failed to load participants", err)
		}
		users, err := s.userRepo.FindAll(ctx, specification.ByIDs{IDs: participantIDs})
		if err != nil {
			return nil, apperror.NewTransient("failed to load participants", err)
		}
		last, err := s.msgRepo.LastMessage(ctx, conv.Id)
		if err != nil {
			return nil, apperror.NewTransient("failed to load last message", err)
		}
		unread, err := s.msgRepo.UnreadCount(ctx, conv.Id, userID)
		if err != nil {
			return nil, apperror.NewTransient("failed to count unread messages", err)
		}

		summaries = append(summaries, &entity.ConversationSummary{
			Conversation: conv,
			Participants: users,
			LastMessage:  last,
			UnreadCount:  unread,
		})
	}
	return summaries, nil
}
