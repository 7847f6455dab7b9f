package main

import (
	"log"
	"os"
	"time"

	"venturelink-be/internal/model"
	"venturelink-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding demo users...")

	founder := seedUser(db, "Ava Founder", "ava@example.com", "entrepreneur")
	investor := seedUser(db, "Ben Investor", "ben@example.com", "investor")

	color.Cyan("Seeding demo conversation...")

	now := time.Now().UTC()
	conv := model.Conversation{
		Id:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&conv).Error; err != nil {
		log.Fatalf("Error creating conversation: %v", err)
	}
	participants := []model.ConversationParticipant{
		{ConversationId: conv.Id, UserId: founder},
		{ConversationId: conv.Id, UserId: investor},
	}
	if err := db.Create(&participants).Error; err != nil {
		log.Fatalf("Error creating participants: %v", err)
	}

	messages := []model.Message{
		{
			Id:             uuid.New(),
			ConversationId: conv.Id,
			SenderId:       founder,
			Content:        "Hi Ben, thanks for connecting. I'd love to walk you through our seed round.",
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			Id:             uuid.New(),
			ConversationId: conv.Id,
			SenderId:       investor,
			Content:        "Happy to chat. Send over the deck when you get a chance.",
			CreatedAt:      now.Add(time.Minute),
			UpdatedAt:      now.Add(time.Minute),
		},
	}
	if err := db.Create(&messages).Error; err != nil {
		log.Fatalf("Error creating messages: %v", err)
	}
	if err := db.Model(&model.Conversation{}).Where("id = ?", conv.Id).Update("updated_at", messages[1].CreatedAt).Error; err != nil {
		log.Printf("Warn: Failed to bump conversation: %v", err)
	}

	color.Green("✅ Seeding completed: 2 users, 1 conversation, 2 messages")
	color.Yellow("Login with ava@example.com / password123 or ben@example.com / password123")
}

func seedUser(db *gorm.DB, name, email, role string) uuid.UUID {
	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		color.Yellow("User '%s' already exists, skipping...", email)
		return existing.Id
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error hashing password: %v", err)
	}

	user := model.User{
		Id:           uuid.New(),
		FullName:     name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("Error creating user '%s': %v", email, err)
	}
	color.Green("Created user: %s (%s)", name, role)
	return user.Id
}
