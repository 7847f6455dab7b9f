package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleEntrepreneur UserRole = "entrepreneur"
	UserRoleInvestor     UserRole = "investor"
	UserRoleAdmin        UserRole = "admin"
)

type User struct {
	Id           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
