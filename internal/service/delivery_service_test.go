package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/websocket"
	"venturelink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type broadcastCall struct {
	conversationID uuid.UUID
	event          string
	payload        any
}

type fakeBroadcaster struct {
	published []broadcastCall
	notified  []broadcastCall
}

func (b *fakeBroadcaster) Publish(conversationID uuid.UUID, event string, payload any) {
	b.published = append(b.published, broadcastCall{conversationID, event, payload})
}

func (b *fakeBroadcaster) NotifyUser(userID uuid.UUID, event string, payload any) {
	b.notified = append(b.notified, broadcastCall{userID, event, payload})
}

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	fail     bool
}

func (p *fakePublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.fail {
		return errors.New("bus down")
	}
	for _, m := range msgs {
		p.topics = append(p.topics, topic)
		p.payloads = append(p.payloads, m.Payload)
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeChat returns canned results so delivery ordering can be asserted
// without a real store.
type fakeChat struct {
	IChatService
	msg     *entity.Message
	summary *entity.ConversationSummary
	read    *ReadResult
	err     error
}

func (f *fakeChat) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error) {
	return f.msg, f.err
}

func (f *fakeChat) CreateConversation(ctx context.Context, creatorID uuid.UUID, otherUserIDs []uuid.UUID) (*entity.ConversationSummary, error) {
	return f.summary, f.err
}

func (f *fakeChat) MarkRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (*ReadResult, error) {
	return f.read, f.err
}

func (f *fakeChat) EditMessage(ctx context.Context, messageID, editorID uuid.UUID, content string) (*entity.Message, error) {
	return f.msg, f.err
}

type fakeDirectory struct {
	members []uuid.UUID
	err     error
}

func (f *fakeDirectory) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDirectory) ParticipantsOf(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	return f.members, f.err
}

func TestDeliverySendMessageBroadcastsAndPublishes(t *testing.T) {
	convID := uuid.New()
	sender := uuid.New()
	recipient := uuid.New()
	msg := &entity.Message{Id: uuid.New(), ConversationId: convID, SenderId: sender, Content: "hi", CreatedAt: time.Now().UTC()}

	broadcaster := &fakeBroadcaster{}
	publisher := &fakePublisher{}
	svc := NewDeliveryService(
		&fakeChat{msg: msg},
		&fakeDirectory{members: []uuid.UUID{sender, recipient}},
		broadcaster,
		publisher,
		nopLogger{},
	)

	got, err := svc.SendMessage(context.Background(), convID, sender, "hi")
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	require.Len(t, broadcaster.published, 1)
	assert.Equal(t, convID, broadcaster.published[0].conversationID)
	assert.Equal(t, websocket.EventNewMessage, broadcaster.published[0].event)

	require.Len(t, publisher.topics, 1)
	assert.Equal(t, events.TopicMessageSent, publisher.topics[0])

	var event events.MessageSentEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, msg.Id, event.Message.Id)
	// The sender never gets a notification about their own message.
	assert.Equal(t, []uuid.UUID{recipient}, event.Recipients)
}

func TestDeliverySendMessageStoreFailureSkipsBroadcast(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	publisher := &fakePublisher{}
	svc := NewDeliveryService(
		&fakeChat{err: apperror.NewTransient("db down", errors.New("timeout"))},
		&fakeDirectory{},
		broadcaster,
		publisher,
		nopLogger{},
	)

	_, err := svc.SendMessage(context.Background(), uuid.New(), uuid.New(), "hi")
	assert.True(t, apperror.IsTransient(err))
	assert.Empty(t, broadcaster.published)
	assert.Empty(t, publisher.topics)
}

func TestDeliverySendMessageSurvivesBusFailure(t *testing.T) {
	convID := uuid.New()
	sender := uuid.New()
	msg := &entity.Message{Id: uuid.New(), ConversationId: convID, SenderId: sender}

	broadcaster := &fakeBroadcaster{}
	svc := NewDeliveryService(
		&fakeChat{msg: msg},
		&fakeDirectory{members: []uuid.UUID{sender}},
		broadcaster,
		&fakePublisher{fail: true},
		nopLogger{},
	)

	got, err := svc.SendMessage(context.Background(), convID, sender, "hi")
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	// The room broadcast still happened.
	assert.Len(t, broadcaster.published, 1)
}

func TestDeliveryCreateConversationNotifiesOthers(t *testing.T) {
	creator := uuid.New()
	other := uuid.New()
	summary := &entity.ConversationSummary{
		Conversation: &entity.Conversation{Id: uuid.New()},
		Participants: []*entity.User{{Id: creator}, {Id: other}},
	}

	publisher := &fakePublisher{}
	svc := NewDeliveryService(&fakeChat{summary: summary}, &fakeDirectory{}, &fakeBroadcaster{}, publisher, nopLogger{})

	_, err := svc.CreateConversation(context.Background(), creator, []uuid.UUID{other})
	require.NoError(t, err)

	require.Len(t, publisher.topics, 1)
	assert.Equal(t, events.TopicConversationCreated, publisher.topics[0])

	var event events.ConversationCreatedEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	assert.Equal(t, []uuid.UUID{other}, event.Recipients)
}

func TestDeliveryMarkReadBroadcastsOnlyNewReceipts(t *testing.T) {
	convID := uuid.New()
	reader := uuid.New()
	msgID := uuid.New()

	broadcaster := &fakeBroadcaster{}
	svc := NewDeliveryService(
		&fakeChat{read: &ReadResult{NewlyMarked: 1, ByConversation: map[uuid.UUID][]uuid.UUID{convID: {msgID}}}},
		&fakeDirectory{},
		broadcaster,
		&fakePublisher{},
		nopLogger{},
	)

	result, err := svc.MarkRead(context.Background(), []uuid.UUID{msgID}, reader)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewlyMarked)

	require.Len(t, broadcaster.published, 1)
	assert.Equal(t, websocket.EventMessagesRead, broadcaster.published[0].event)
	payload, ok := broadcaster.published[0].payload.(websocket.ReadStatePayload)
	require.True(t, ok)
	assert.Equal(t, reader, payload.UserId)
	assert.Equal(t, []uuid.UUID{msgID}, payload.MessageIds)

	// A repeat mark changes nothing, so nothing is broadcast.
	broadcaster.published = nil
	svc = NewDeliveryService(
		&fakeChat{read: &ReadResult{ByConversation: map[uuid.UUID][]uuid.UUID{}}},
		&fakeDirectory{},
		broadcaster,
		&fakePublisher{},
		nopLogger{},
	)
	_, err = svc.MarkRead(context.Background(), []uuid.UUID{msgID}, reader)
	require.NoError(t, err)
	assert.Empty(t, broadcaster.published)
}

func TestDeliveryCanAccess(t *testing.T) {
	member := uuid.New()
	svc := NewDeliveryService(&fakeChat{}, &fakeDirectory{members: []uuid.UUID{member}}, &fakeBroadcaster{}, &fakePublisher{}, nopLogger{})

	assert.True(t, svc.CanAccess(context.Background(), uuid.New(), member))
	assert.False(t, svc.CanAccess(context.Background(), uuid.New(), uuid.New()))

	// Lookup failures deny, they never panic or grant.
	svc = NewDeliveryService(&fakeChat{}, &fakeDirectory{err: errors.New("db down")}, &fakeBroadcaster{}, &fakePublisher{}, nopLogger{})
	assert.False(t, svc.CanAccess(context.Background(), uuid.New(), member))
}
