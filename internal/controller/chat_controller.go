package controller

import (
	"strconv"
	"strings"

	"venturelink-be/internal/dto"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/pkg/serverutils"
	"venturelink-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChatController struct {
	delivery service.IDeliveryService
	presence service.IPresenceService
}

func NewChatController(delivery service.IDeliveryService, presence service.IPresenceService) *ChatController {
	return &ChatController{delivery: delivery, presence: presence}
}

func (c *ChatController) RegisterRoutes(router fiber.Router) {
	chat := router.Group("/chat/v1", serverutils.JwtMiddleware)
	chat.Post("/conversations", c.CreateConversation)
	chat.Get("/conversations", c.ListConversations)
	chat.Get("/conversations/:id/messages", c.GetMessages)
	chat.Post("/conversations/:id/messages", c.SendMessage)
	chat.Patch("/messages/read", c.MarkRead)
	chat.Patch("/messages/:id", c.EditMessage)
	chat.Get("/presence", c.Presence)
}

func (c *ChatController) CreateConversation(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	summary, err := c.delivery.CreateConversation(ctx.Context(), userID, req.ParticipantIds)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Conversation created", dto.NewConversationSummaryDTO(summary)))
}

func (c *ChatController) ListConversations(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	summaries, err := c.delivery.ListConversations(ctx.Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversations", dto.NewConversationSummaryDTOs(summaries)))
}

func (c *ChatController) GetMessages(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewValidation("invalid conversation id")
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))
	msgs, err := c.delivery.GetMessages(ctx.Context(), conversationID, userID, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Messages", dto.NewMessageDTOs(msgs)))
}

func (c *ChatController) SendMessage(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}
	conversationID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewValidation("invalid conversation id")
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	msg, err := c.delivery.SendMessage(ctx.Context(), conversationID, userID, req.Content)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Message sent", dto.NewMessageDTO(msg)))
}

func (c *ChatController) MarkRead(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.MarkReadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	result, err := c.delivery.MarkRead(ctx.Context(), req.MessageIds, userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Messages marked as read", dto.MarkReadResponse{NewlyMarked: result.NewlyMarked}))
}

func (c *ChatController) EditMessage(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}
	messageID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewValidation("invalid message id")
	}

	var req dto.EditMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.NewValidation("invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	msg, err := c.delivery.EditMessage(ctx.Context(), messageID, userID, req.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message updated", dto.NewMessageDTO(msg)))
}

// Presence reports online state for a comma-separated userIds query.
func (c *ChatController) Presence(ctx *fiber.Ctx) error {
	if _, err := currentUserID(ctx); err != nil {
		return err
	}

	raw := ctx.Query("userIds")
	if raw == "" {
		return apperror.NewValidation("userIds query parameter is required")
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return apperror.NewValidation("invalid user id: " + part)
		}
		ids = append(ids, id)
	}

	online, err := c.presence.IsOnline(ctx.Context(), ids)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Presence", dto.PresenceResponse{Online: online}))
}
