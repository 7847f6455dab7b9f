package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/repository/memory"
	"venturelink-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the GORM repositories, honoring the
// same contracts: transactional append, idempotent receipts, updated_at bump.
type memStore struct {
	users        map[uuid.UUID]*entity.User
	convs        map[uuid.UUID]*entity.Conversation
	participants map[uuid.UUID][]uuid.UUID
	messages     []*entity.Message
	receipts     map[uuid.UUID]map[uuid.UUID]time.Time // message -> user -> readAt

	participantCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uuid.UUID]*entity.User),
		convs:        make(map[uuid.UUID]*entity.Conversation),
		participants: make(map[uuid.UUID][]uuid.UUID),
		receipts:     make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (s *memStore) addUser(role entity.UserRole) *entity.User {
	u := &entity.User{Id: uuid.New(), FullName: "User", Email: uuid.NewString() + "@example.com", Role: role}
	s.users[u.Id] = u
	return u
}

// UserRepository

func (s *memStore) Create(ctx context.Context, user *entity.User) error {
	s.users[user.Id] = user
	return nil
}

func (s *memStore) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			return s.users[sp.ID], nil
		case specification.ByEmail:
			for _, u := range s.users {
				if u.Email == sp.Email {
					return u, nil
				}
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	for _, spec := range specs {
		if sp, ok := spec.(specification.ByIDs); ok {
			var out []*entity.User
			for _, id := range sp.IDs {
				if u, ok := s.users[id]; ok {
					out = append(out, u)
				}
			}
			return out, nil
		}
	}
	return nil, nil
}

func (s *memStore) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(s.users)), nil
}

// ConversationRepository (wrapped to dodge the method name clash with users)

type memConvRepo struct{ s *memStore }

func (r memConvRepo) Create(ctx context.Context, conv *entity.Conversation, participantIDs []uuid.UUID) error {
	r.s.convs[conv.Id] = conv
	r.s.participants[conv.Id] = participantIDs
	return nil
}

func (r memConvRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	for _, spec := range specs {
		if sp, ok := spec.(specification.ByID); ok {
			return r.s.convs[sp.ID], nil
		}
	}
	return nil, nil
}

func (r memConvRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for convID, members := range r.s.participants {
		for _, m := range members {
			if m == userID {
				out = append(out, r.s.convs[convID])
				break
			}
		}
	}
	return out, nil
}

func (r memConvRepo) ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	return r.s.participants[conversationID], nil
}

func (r memConvRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.s.participantCalls++
	for _, m := range r.s.participants[conversationID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

// MessageRepository

type memMsgRepo struct{ s *memStore }

func (r memMsgRepo) Append(ctx context.Context, msg *entity.Message) error {
	r.s.messages = append(r.s.messages, msg)
	r.s.receipts[msg.Id] = map[uuid.UUID]time.Time{msg.SenderId: msg.CreatedAt}
	if conv, ok := r.s.convs[msg.ConversationId]; ok {
		conv.UpdatedAt = msg.CreatedAt
	}
	return nil
}

func (r memMsgRepo) Update(ctx context.Context, msg *entity.Message) error {
	for i, m := range r.s.messages {
		if m.Id == msg.Id {
			r.s.messages[i] = msg
			return nil
		}
	}
	return nil
}

func (r memMsgRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	for _, spec := range specs {
		if sp, ok := spec.(specification.ByID); ok {
			for _, m := range r.s.messages {
				if m.Id == sp.ID {
					return m, nil
				}
			}
		}
	}
	return nil, nil
}

func (r memMsgRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	for _, spec := range specs {
		if sp, ok := spec.(specification.ByIDs); ok {
			var out []*entity.Message
			for _, id := range sp.IDs {
				for _, m := range r.s.messages {
					if m.Id == id {
						out = append(out, m)
					}
				}
			}
			return out, nil
		}
	}
	return nil, nil
}

func (r memMsgRepo) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entity.Message, error) {
	var all []*entity.Message
	for _, m := range r.s.messages {
		if m.ConversationId == conversationID {
			all = append(all, m)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r memMsgRepo) LastMessage(ctx context.Context, conversationID uuid.UUID) (*entity.Message, error) {
	var last *entity.Message
	for _, m := range r.s.messages {
		if m.ConversationId == conversationID {
			last = m
		}
	}
	return last, nil
}

func (r memMsgRepo) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	for _, m := range r.s.messages {
		if m.ConversationId != conversationID || m.SenderId == userID {
			continue
		}
		if _, read := r.s.receipts[m.Id][userID]; !read {
			count++
		}
	}
	return count, nil
}

// ReceiptRepository

type memReceiptRepo struct{ s *memStore }

func (r memReceiptRepo) CreateBatch(ctx context.Context, receipts []*entity.MessageReceipt) (int64, error) {
	var created int64
	for _, rec := range receipts {
		if _, exists := r.s.receipts[rec.MessageId][rec.UserId]; exists {
			continue
		}
		if r.s.receipts[rec.MessageId] == nil {
			r.s.receipts[rec.MessageId] = make(map[uuid.UUID]time.Time)
		}
		r.s.receipts[rec.MessageId][rec.UserId] = rec.ReadAt
		created++
	}
	return created, nil
}

func newChatFixture() (*memStore, IChatService) {
	store := newMemStore()
	directory := NewDirectoryService(memConvRepo{store}, memory.NewMembershipCache())
	svc := NewChatService(memConvRepo{store}, memMsgRepo{store}, memReceiptRepo{store}, store, directory)
	return store, svc
}

func TestCreateConversationRequiresTwoParticipants(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)

	_, err := svc.CreateConversation(context.Background(), creator.Id, nil)
	assert.True(t, apperror.IsValidation(err))

	// Duplicating the creator does not make a second participant.
	_, err = svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{creator.Id})
	assert.True(t, apperror.IsValidation(err))
}

func TestCreateConversationRejectsUnknownUsers(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)

	_, err := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{uuid.New()})
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateConversationIsNotIdempotent(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)

	first, err := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	require.NoError(t, err)
	second, err := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	require.NoError(t, err)

	assert.NotEqual(t, first.Conversation.Id, second.Conversation.Id)
	assert.Len(t, first.Participants, 2)
}

func TestSendMessagePersists(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, err := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	require.NoError(t, err)
	convID := summary.Conversation.Id

	msg, err := svc.SendMessage(context.Background(), convID, creator.Id, "hello")
	require.NoError(t, err)

	assert.Equal(t, convID, msg.ConversationId)
	assert.Equal(t, creator.Id, msg.SenderId)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.False(t, msg.IsEdited)

	// Conversation bumped to the message timestamp.
	assert.Equal(t, msg.CreatedAt, store.convs[convID].UpdatedAt)

	// Sender never counts their own message as unread.
	unread, err := memMsgRepo{store}.UnreadCount(context.Background(), convID, creator.Id)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = memMsgRepo{store}.UnreadCount(context.Background(), convID, other.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestSendMessageValidation(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})

	_, err := svc.SendMessage(context.Background(), summary.Conversation.Id, creator.Id, "   ")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.SendMessage(context.Background(), summary.Conversation.Id, creator.Id, strings.Repeat("a", 5001))
	assert.True(t, apperror.IsValidation(err))

	// Exactly at the limit is fine.
	_, err = svc.SendMessage(context.Background(), summary.Conversation.Id, creator.Id, strings.Repeat("a", 5000))
	assert.NoError(t, err)
}

func TestSendMessageRejectsOutsiders(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	outsider := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})

	_, err := svc.SendMessage(context.Background(), summary.Conversation.Id, outsider.Id, "hi")
	assert.True(t, apperror.IsPermission(err))

	_, err = svc.SendMessage(context.Background(), uuid.New(), creator.Id, "hi")
	assert.True(t, apperror.IsNotFound(err))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	convID := summary.Conversation.Id

	msg, err := svc.SendMessage(context.Background(), convID, creator.Id, "hello")
	require.NoError(t, err)

	first, err := svc.MarkRead(context.Background(), []uuid.UUID{msg.Id}, other.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, first.NewlyMarked)
	assert.Equal(t, []uuid.UUID{msg.Id}, first.ByConversation[convID])

	second, err := svc.MarkRead(context.Background(), []uuid.UUID{msg.Id}, other.Id)
	require.NoError(t, err)
	assert.Zero(t, second.NewlyMarked)
	assert.Empty(t, second.ByConversation)

	unread, _ := memMsgRepo{store}.UnreadCount(context.Background(), convID, other.Id)
	assert.Zero(t, unread)
}

func TestMarkReadSkipsOwnAndForeignMessages(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	outsider := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})

	msg, err := svc.SendMessage(context.Background(), summary.Conversation.Id, creator.Id, "hello")
	require.NoError(t, err)

	// Marking your own message does nothing.
	result, err := svc.MarkRead(context.Background(), []uuid.UUID{msg.Id}, creator.Id)
	require.NoError(t, err)
	assert.Zero(t, result.NewlyMarked)

	// A non-participant gets a silent no-op, not an error.
	result, err = svc.MarkRead(context.Background(), []uuid.UUID{msg.Id}, outsider.Id)
	require.NoError(t, err)
	assert.Zero(t, result.NewlyMarked)
}

func TestGetMessagesTruncatesToMostRecent(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	convID := summary.Conversation.Id

	var sent []*entity.Message
	for i := 0; i < 5; i++ {
		msg, err := svc.SendMessage(context.Background(), convID, creator.Id, "message")
		require.NoError(t, err)
		sent = append(sent, msg)
	}

	msgs, err := svc.GetMessages(context.Background(), convID, other.Id, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// The most recent three, oldest first.
	assert.Equal(t, sent[2].Id, msgs[0].Id)
	assert.Equal(t, sent[4].Id, msgs[2].Id)

	// Zero limit falls back to the default.
	msgs, err = svc.GetMessages(context.Background(), convID, other.Id, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)

	_, err = svc.GetMessages(context.Background(), convID, uuid.New(), 10)
	assert.True(t, apperror.IsPermission(err))
}

func TestListConversationsSummaries(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})
	convID := summary.Conversation.Id

	msg, err := svc.SendMessage(context.Background(), convID, creator.Id, "hello")
	require.NoError(t, err)

	list, err := svc.ListConversations(context.Background(), other.Id)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Equal(t, convID, list[0].Conversation.Id)
	assert.Len(t, list[0].Participants, 2)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, msg.Id, list[0].LastMessage.Id)
	assert.Equal(t, int64(1), list[0].UnreadCount)

	// The sender's own view has nothing unread.
	list, err = svc.ListConversations(context.Background(), creator.Id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].UnreadCount)
}

func TestEditMessage(t *testing.T) {
	store, svc := newChatFixture()
	creator := store.addUser(entity.UserRoleEntrepreneur)
	other := store.addUser(entity.UserRoleInvestor)
	summary, _ := svc.CreateConversation(context.Background(), creator.Id, []uuid.UUID{other.Id})

	msg, err := svc.SendMessage(context.Background(), summary.Conversation.Id, creator.Id, "helo")
	require.NoError(t, err)

	edited, err := svc.EditMessage(context.Background(), msg.Id, creator.Id, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content)
	assert.True(t, edited.IsEdited)

	_, err = svc.EditMessage(context.Background(), msg.Id, other.Id, "hijack")
	assert.True(t, apperror.IsPermission(err))

	_, err = svc.EditMessage(context.Background(), uuid.New(), creator.Id, "hello")
	assert.True(t, apperror.IsNotFound(err))
}
