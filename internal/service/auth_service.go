package service

import (
	"context"
	"os"
	"time"

	"venturelink-be/internal/dto"
	"venturelink-be/internal/entity"
	"venturelink-be/internal/pkg/apperror"
	"venturelink-be/internal/pkg/logger"
	"venturelink-be/internal/pkg/mailer"
	"venturelink-be/internal/repository/contract"
	"venturelink-be/internal/repository/specification"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}

type authService struct {
	userRepo contract.UserRepository
	mailer   mailer.IEmailService
	tokenTTL time.Duration
	logger   logger.ILogger
}

func NewAuthService(userRepo contract.UserRepository, email mailer.IEmailService, tokenTTL time.Duration, log logger.ILogger) IAuthService {
	return &authService{
		userRepo: userRepo,
		mailer:   email,
		tokenTTL: tokenTTL,
		logger:   log,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	existing, err := s.userRepo.FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, apperror.NewTransient("failed to check email", err)
	}
	if existing != nil {
		return nil, apperror.NewValidation("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewTransient("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &entity.User{
		Id:           uuid.New(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         entity.UserRole(req.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.NewTransient("failed to create user", err)
	}

	// Best effort; registration succeeds even if SMTP is down.
	go func() {
		if err := s.mailer.SendWelcome(user.Email, user.FullName); err != nil {
			s.logger.Warn("Auth", "Failed to send welcome email", map[string]interface{}{"email": user.Email, "error": err})
		}
	}()

	token, err := s.issueToken(user.Id)
	if err != nil {
		return nil, apperror.NewTransient("failed to issue token", err)
	}

	return &dto.AuthResponse{Token: token, User: dto.NewUserDTO(user)}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, apperror.NewTransient("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.NewAuth("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuth("invalid email or password")
	}

	token, err := s.issueToken(user.Id)
	if err != nil {
		return nil, apperror.NewTransient("failed to issue token", err)
	}

	return &dto.AuthResponse{Token: token, User: dto.NewUserDTO(user)}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return nil, apperror.NewTransient("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.NewNotFound("user not found")
	}
	return user, nil
}

func (s *authService) issueToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
