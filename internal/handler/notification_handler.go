package handler

import (
	"os"

	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/pkg/serverutils"
	"venturelink-be/internal/service"
	ws "venturelink-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NotificationHandler serves the persisted notification inbox and the
// websocket endpoint that realtime events flow over.
type NotificationHandler struct {
	notifications service.INotificationService
	hub           *ws.Hub
}

func NewNotificationHandler(notifications service.INotificationService, hub *ws.Hub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub}
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications", serverutils.JwtMiddleware)
	notif.Get("/", h.List)
	notif.Get("/unread-count", h.UnreadCount)
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Patch("/read-all", h.MarkAllAsRead)

	router.Use("/ws", func(ctx *fiber.Ctx) error {
		if !fiberws.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		userID, err := wsUserID(ctx)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
		}
		ctx.Locals("ws_user_id", userID)
		return ctx.Next()
	})
	router.Get("/ws", fiberws.New(func(conn *fiberws.Conn) {
		userID := conn.Locals("ws_user_id").(uuid.UUID)
		ws.ServeClient(h.hub, conn, userID)
	}))
}

func (h *NotificationHandler) List(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	rows, total, err := h.notifications.GetNotifications(ctx.Context(), userID, limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notifications", fiber.Map{
		"notifications": rows,
		"total":         total,
	}))
}

func (h *NotificationHandler) UnreadCount(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	count, err := h.notifications.GetUnreadCount(ctx.Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Unread count", fiber.Map{"count": count}))
}

func (h *NotificationHandler) MarkAsRead(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}
	notificationID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.NewValidation("invalid notification id")
	}

	if err := h.notifications.MarkAsRead(ctx.Context(), userID, notificationID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Notification marked as read", struct{}{}))
}

func (h *NotificationHandler) MarkAllAsRead(ctx *fiber.Ctx) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	if err := h.notifications.MarkAllAsRead(ctx.Context(), userID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("All notifications marked as read", struct{}{}))
}

func currentUserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperror.NewAuth("missing authentication")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NewAuth("invalid authentication")
	}
	return id, nil
}

// wsUserID authenticates the upgrade request. Browsers cannot set headers on
// websocket connections, so the token may also come as a query parameter.
func wsUserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return uuid.Nil, apperror.NewAuth("missing token")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperror.NewAuth("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperror.NewAuth("invalid claims")
	}
	raw, _ := claims["user_id"].(string)
	return uuid.Parse(raw)
}
