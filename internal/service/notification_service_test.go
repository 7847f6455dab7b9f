package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"venturelink-be/internal/dto"
	"venturelink-be/internal/model"
	"venturelink-be/internal/websocket"
	"venturelink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifRepo struct {
	mu   sync.Mutex
	rows []*model.Notification
}

func (r *fakeNotifRepo) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
	return nil
}

func (r *fakeNotifRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotifRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotifRepo) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error { return nil }

func (r *fakeNotifRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error { return nil }

func (r *fakeNotifRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeDelivery struct {
	mu     sync.Mutex
	events []broadcastCall
}

func (d *fakeDelivery) NotifyUser(userID uuid.UUID, event string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, broadcastCall{userID, event, payload})
}

func (d *fakeDelivery) snapshot() []broadcastCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]broadcastCall(nil), d.events...)
}

func publishEvent(t *testing.T, pubSub *gochannel.GoChannel, topic string, event any) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)))
}

func TestNotificationMessageSentPersistsAndDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := &fakeNotifRepo{}
	delivery := &fakeDelivery{}
	svc := NewNotificationService(repo, pubSub, delivery, nopLogger{})
	require.NoError(t, svc.Start(ctx))

	convID := uuid.New()
	sender := uuid.New()
	recipient := uuid.New()
	publishEvent(t, pubSub, events.TopicMessageSent, events.MessageSentEvent{
		ConversationId: convID,
		Message:        dto.MessageDTO{Id: uuid.New(), ConversationId: convID, SenderId: sender, Content: "hello there"},
		Recipients:     []uuid.UUID{recipient},
		OccurredAt:     time.Now().UTC(),
	})

	assert.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 10*time.Millisecond)

	row := repo.rows[0]
	assert.Equal(t, recipient, row.UserID)
	assert.Equal(t, model.NotificationTypeNewMessage, row.TypeCode)
	require.NotNil(t, row.ActorID)
	assert.Equal(t, sender, *row.ActorID)
	assert.Equal(t, "hello there", row.Message)

	assert.Eventually(t, func() bool { return len(delivery.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	sent := delivery.snapshot()[0]
	assert.Equal(t, recipient, sent.conversationID)
	assert.Equal(t, websocket.EventNewMessageNotification, sent.event)
}

func TestNotificationConversationCreated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	repo := &fakeNotifRepo{}
	delivery := &fakeDelivery{}
	svc := NewNotificationService(repo, pubSub, delivery, nopLogger{})
	require.NoError(t, svc.Start(ctx))

	recipient := uuid.New()
	publishEvent(t, pubSub, events.TopicConversationCreated, events.ConversationCreatedEvent{
		Summary:    dto.ConversationSummaryDTO{Id: uuid.New()},
		Recipients: []uuid.UUID{recipient},
		OccurredAt: time.Now().UTC(),
	})

	assert.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, model.NotificationTypeNewConversation, repo.rows[0].TypeCode)

	assert.Eventually(t, func() bool { return len(delivery.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, websocket.EventNewConversation, delivery.snapshot()[0].event)
}

func TestNotificationLongPreviewTruncated(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := preview(string(long))
	assert.Len(t, []rune(got), 120)
	assert.Contains(t, got, "...")
}
