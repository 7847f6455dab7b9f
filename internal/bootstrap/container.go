package bootstrap

import (
	"context"
	"log"

	"venturelink-be/internal/config"
	"venturelink-be/internal/controller"
	"venturelink-be/internal/handler"
	"venturelink-be/internal/pkg/logger"
	"venturelink-be/internal/pkg/mailer"
	"venturelink-be/internal/repository/implementation"
	"venturelink-be/internal/repository/memory"
	"venturelink-be/internal/service"
	"venturelink-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController *controller.AuthController
	ChatController *controller.ChatController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// Redis (presence). The app runs without it; presence degrades.
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	presenceService := service.NewPresenceService(rdb, wsLogger)
	wsHub := websocket.NewHub(presenceService, wsLogger)
	go wsHub.Run()

	// 3. Repositories
	userRepo := implementation.NewUserRepository(db)
	convRepo := implementation.NewConversationRepository(db)
	msgRepo := implementation.NewMessageRepository(db)
	receiptRepo := implementation.NewReceiptRepository(db)
	notifRepo := implementation.NewNotificationRepository(db)
	membershipCache := memory.NewMembershipCache()

	// 4. Services
	directoryService := service.NewDirectoryService(convRepo, membershipCache)
	chatService := service.NewChatService(convRepo, msgRepo, receiptRepo, userRepo, directoryService)
	deliveryService := service.NewDeliveryService(chatService, directoryService, wsHub, pubSub, sysLogger)
	wsHub.SetGateway(deliveryService) // Hub needs the coordinator for inbound events

	authService := service.NewAuthService(userRepo, emailService, cfg.Auth.TokenTTL, sysLogger)

	notifService := service.NewNotificationService(notifRepo, pubSub, wsHub, wsLogger)
	if err := notifService.Start(context.Background()); err != nil {
		log.Printf("[WARN] Failed to start notification consumer: %v", err)
	}

	// 5. Handlers & Controllers
	notifHandler := handler.NewNotificationHandler(notifService, wsHub)

	return &Container{
		AuthController:      controller.NewAuthController(authService),
		ChatController:      controller.NewChatController(deliveryService, presenceService),
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
	}
}
