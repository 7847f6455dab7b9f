package dto

import (
	"time"

	"venturelink-be/internal/entity"

	"github.com/google/uuid"
)

// Wire shapes below are a fixed contract with the web client; field names
// must not change.

type UserDTO struct {
	Id    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type MessageDTO struct {
	Id             uuid.UUID `json:"id"`
	ConversationId uuid.UUID `json:"conversationId"`
	SenderId       uuid.UUID `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	IsEdited       bool      `json:"isEdited"`
}

type ConversationSummaryDTO struct {
	Id           uuid.UUID   `json:"id"`
	Participants []UserDTO   `json:"participants"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	LastMessage  *MessageDTO `json:"lastMessage"`
	UnreadCount  int64       `json:"unreadCount"`
}

type CreateConversationRequest struct {
	ParticipantIds []uuid.UUID `json:"participantIds" validate:"required,min=1"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type MarkReadRequest struct {
	MessageIds []uuid.UUID `json:"messageIds" validate:"required,min=1"`
}

type MarkReadResponse struct {
	NewlyMarked int `json:"newlyMarked"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type PresenceResponse struct {
	Online map[uuid.UUID]bool `json:"online"`
}

func NewUserDTO(u *entity.User) UserDTO {
	return UserDTO{
		Id:    u.Id,
		Name:  u.FullName,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

func NewMessageDTO(m *entity.Message) MessageDTO {
	return MessageDTO{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		IsEdited:       m.IsEdited,
	}
}

func NewMessageDTOs(msgs []*entity.Message) []MessageDTO {
	out := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = NewMessageDTO(m)
	}
	return out
}

func NewConversationSummaryDTO(s *entity.ConversationSummary) ConversationSummaryDTO {
	participants := make([]UserDTO, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = NewUserDTO(p)
	}

	var last *MessageDTO
	if s.LastMessage != nil {
		d := NewMessageDTO(s.LastMessage)
		last = &d
	}

	return ConversationSummaryDTO{
		Id:           s.Conversation.Id,
		Participants: participants,
		CreatedAt:    s.Conversation.CreatedAt,
		UpdatedAt:    s.Conversation.UpdatedAt,
		LastMessage:  last,
		UnreadCount:  s.UnreadCount,
	}
}

func NewConversationSummaryDTOs(summaries []*entity.ConversationSummary) []ConversationSummaryDTO {
	out := make([]ConversationSummaryDTO, len(summaries))
	for i, s := range summaries {
		out[i] = NewConversationSummaryDTO(s)
	}
	return out
}
