package service

import (
	"context"
	"encoding/json"

	"venturelink-be/internal/model"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/pkg/logger"
	"venturelink-be/internal/repository/contract"
	"venturelink-be/internal/websocket"
	"venturelink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// NotificationDelivery pushes a realtime event to all of one user's
// sessions. Implemented by the websocket hub.
type NotificationDelivery interface {
	NotifyUser(userID uuid.UUID, event string, payload any)
}

// INotificationService consumes chat events off the bus, persists inbox
// rows and fans the realtime notification out to each recipient.
type INotificationService interface {
	Start(ctx context.Context) error

	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
}

type notificationService struct {
	repo       contract.NotificationRepository
	subscriber message.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(
	repo contract.NotificationRepository,
	subscriber message.Subscriber,
	delivery NotificationDelivery,
	log logger.ILogger,
) INotificationService {
	return &notificationService{
		repo:       repo,
		subscriber: subscriber,
		delivery:   delivery,
		logger:     log,
	}
}

// Start subscribes to the chat topics and consumes them until ctx is done.
func (s *notificationService) Start(ctx context.Context) error {
	sent, err := s.subscriber.Subscribe(ctx, events.TopicMessageSent)
	if err != nil {
		return err
	}
	created, err := s.subscriber.Subscribe(ctx, events.TopicConversationCreated)
	if err != nil {
		return err
	}

	go s.consume(ctx, sent, s.handleMessageSent)
	go s.consume(ctx, created, s.handleConversationCreated)
	return nil
}

func (s *notificationService) consume(ctx context.Context, msgs <-chan *message.Message, handle func(ctx context.Context, msg *message.Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(ctx, msg)
			msg.Ack()
		}
	}
}

func (s *notificationService) handleMessageSent(ctx context.Context, msg *message.Message) {
	var event events.MessageSentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("Notification", "Failed to decode message event", map[string]interface{}{"error": err})
		return
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"conversation_id": event.ConversationId,
		"message_id":      event.Message.Id,
		"sender_id":       event.Message.SenderId,
	})

	for _, recipient := range event.Recipients {
		senderID := event.Message.SenderId
		row := &model.Notification{
			ID:       uuid.New(),
			UserID:   recipient,
			ActorID:  &senderID,
			TypeCode: model.NotificationTypeNewMessage,
			Title:    "New message",
			Message:  preview(event.Message.Content),
			Metadata: metadata,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			s.logger.Error("Notification", "Failed to persist notification", map[string]interface{}{"user_id": recipient, "error": err})
			continue
		}

		s.delivery.NotifyUser(recipient, websocket.EventNewMessageNotification, websocket.MessageNotificationPayload{
			ConversationId: event.ConversationId,
			Message:        event.Message,
		})
	}
}

func (s *notificationService) handleConversationCreated(ctx context.Context, msg *message.Message) {
	var event events.ConversationCreatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("Notification", "Failed to decode conversation event", map[string]interface{}{"error": err})
		return
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"conversation_id": event.Summary.Id,
	})

	for _, recipient := range event.Recipients {
		row := &model.Notification{
			ID:       uuid.New(),
			UserID:   recipient,
			TypeCode: model.NotificationTypeNewConversation,
			Title:    "New conversation",
			Message:  "You were added to a conversation",
			Metadata: metadata,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			s.logger.Error("Notification", "Failed to persist notification", map[string]interface{}{"user_id": recipient, "error": err})
			continue
		}

		s.delivery.NotifyUser(recipient, websocket.EventNewConversation, event.Summary)
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewTransient("failed to list notifications", err)
	}
	return rows, total, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.NewTransient("failed to count notifications", err)
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		return apperror.NewTransient("failed to mark notification as read", err)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllAsRead(ctx, userID); err != nil {
		return apperror.NewTransient("failed to mark notifications as read", err)
	}
	return nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) > 120 {
		return string(runes[:117]) + "..."
	}
	return content
}
