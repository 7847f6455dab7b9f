package service

import (
	"context"
	"encoding/json"
	"time"

	"venturelink-be/internal/dto"
	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/logger"
	"venturelink-be/internal/websocket"
	"venturelink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Broadcaster is the slice of the realtime hub the coordinator needs:
// room fan-out and per-user fan-out.
type Broadcaster interface {
	Publish(conversationID uuid.UUID, event string, payload any)
	NotifyUser(userID uuid.UUID, event string, payload any)
}

// IDeliveryService coordinates persist-then-broadcast. Every mutation goes
// through the store first; realtime fan-out happens only after the store
// accepted the write, and its failures never surface to the caller.
type IDeliveryService interface {
	CreateConversation(ctx context.Context, creatorID uuid.UUID, otherUserIDs []uuid.UUID) (*entity.ConversationSummary, error)
	SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error)
	EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*entity.Message, error)
	MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (*ReadResult, error)
	GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, limit int) ([]*entity.Message, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error)

	CanAccess(ctx context.Context, conversationID, userID uuid.UUID) bool
}

type deliveryService struct {
	chat        IChatService
	directory   IDirectoryService
	broadcaster Broadcaster
	publisher   message.Publisher
	logger      logger.ILogger
}

func NewDeliveryService(
	chat IChatService,
	directory IDirectoryService,
	broadcaster Broadcaster,
	publisher message.Publisher,
	log logger.ILogger,
) IDeliveryService {
	return &deliveryService{
		chat:        chat,
		directory:   directory,
		broadcaster: broadcaster,
		publisher:   publisher,
		logger:      log,
	}
}

func (s *deliveryService) CreateConversation(ctx context.Context, creatorID uuid.UUID, otherUserIDs []uuid.UUID) (*entity.ConversationSummary, error) {
	summary, err := s.chat.CreateConversation(ctx, creatorID, otherUserIDs)
	if err != nil {
		return nil, err
	}

	summaryDTO := dto.NewConversationSummaryDTO(summary)
	recipients := make([]uuid.UUID, 0, len(summary.Participants))
	for _, u := range summary.Participants {
		if u.Id != creatorID {
			recipients = append(recipients, u.Id)
		}
	}

	s.emit(events.TopicConversationCreated, events.ConversationCreatedEvent{
		Summary:    summaryDTO,
		Recipients: recipients,
		OccurredAt: time.Now().UTC(),
	})

	return summary, nil
}

func (s *deliveryService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error) {
	msg, err := s.chat.SendMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	msgDTO := dto.NewMessageDTO(msg)

	// Room broadcast is synchronous so sessions in the room see the message
	// right after the store write. The notification fan-out rides the bus.
	s.broadcaster.Publish(conversationID, websocket.EventNewMessage, msgDTO)

	recipients, err := s.recipientsExcept(ctx, conversationID, senderID)
	if err != nil {
		s.logger.Error("Delivery", "Failed to resolve notification recipients", map[string]interface{}{"conversation_id": conversationID, "error": err})
		return msg, nil
	}

	s.emit(events.TopicMessageSent, events.MessageSentEvent{
		ConversationId: conversationID,
		Message:        msgDTO,
		Recipients:     recipients,
		OccurredAt:     time.Now().UTC(),
	})

	return msg, nil
}

func (s *deliveryService) EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*entity.Message, error) {
	msg, err := s.chat.EditMessage(ctx, messageID, editorID, content)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(msg.ConversationId, websocket.EventMessageEdited, dto.NewMessageDTO(msg))
	return msg, nil
}

func (s *deliveryService) MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (*ReadResult, error) {
	result, err := s.chat.MarkRead(ctx, messageIDs, readerID)
	if err != nil {
		return nil, err
	}

	if result.NewlyMarked > 0 {
		for convID, ids := range result.ByConversation {
			s.broadcaster.Publish(convID, websocket.EventMessagesRead, websocket.ReadStatePayload{
				ConversationId: convID,
				UserId:         readerID,
				MessageIds:     ids,
			})
		}
	}
	return result, nil
}

func (s *deliveryService) GetMessages(ctx context.Context, conversationID, requesterID uuid.UUID, limit int) ([]*entity.Message, error) {
	return s.chat.GetMessages(ctx, conversationID, requesterID, limit)
}

func (s *deliveryService) ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error) {
	return s.chat.ListConversations(ctx, userID)
}

// CanAccess backs the hub's join check. Lookup failures read as denied.
func (s *deliveryService) CanAccess(ctx context.Context, conversationID, userID uuid.UUID) bool {
	ok, err := s.directory.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		s.logger.Warn("Delivery", "Membership check failed, denying access", map[string]interface{}{"conversation_id": conversationID, "user_id": userID, "error": err})
		return false
	}
	return ok
}

func (s *deliveryService) recipientsExcept(ctx context.Context, conversationID, exclude uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.directory.ParticipantsOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	recipients := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			recipients = append(recipients, id)
		}
	}
	return recipients, nil
}

// emit publishes a domain event on the in-process bus. Failures are logged
// and swallowed; the store write already succeeded.
func (s *deliveryService) emit(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Delivery", "Failed to encode event", map[string]interface{}{"topic": topic, "error": err})
		return
	}
	if err := s.publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Error("Delivery", "Failed to publish event", map[string]interface{}{"topic": topic, "error": err})
	}
}
