package service

import (
	"context"
	"time"

	"venturelink-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:user:"
	// presenceTTL outlives one ping interval so a single dropped pong does
	// not flip the user offline.
	presenceTTL = 90 * time.Second
)

// IPresenceService tracks which users have at least one live websocket
// session. Backed by Redis TTL keys refreshed on pong, so presence survives
// across instances and expires on its own when a process dies.
type IPresenceService interface {
	Connected(userID uuid.UUID)
	Heartbeat(userID uuid.UUID)
	Disconnected(userID uuid.UUID)
	IsOnline(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type presenceService struct {
	rdb    *redis.Client
	logger logger.ILogger
}

// NewPresenceService accepts a nil client; presence then degrades to
// everyone-offline instead of failing connections.
func NewPresenceService(rdb *redis.Client, log logger.ILogger) IPresenceService {
	return &presenceService{rdb: rdb, logger: log}
}

func (s *presenceService) Connected(userID uuid.UUID) {
	s.refresh(userID)
}

func (s *presenceService) Heartbeat(userID uuid.UUID) {
	s.refresh(userID)
}

func (s *presenceService) refresh(userID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.Set(ctx, presenceKeyPrefix+userID.String(), "1", presenceTTL).Err(); err != nil {
		s.logger.Warn("Presence", "Failed to refresh presence key", map[string]interface{}{"user_id": userID, "error": err})
	}
}

func (s *presenceService) Disconnected(userID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.Del(ctx, presenceKeyPrefix+userID.String()).Err(); err != nil {
		s.logger.Warn("Presence", "Failed to clear presence key", map[string]interface{}{"user_id": userID, "error": err})
	}
}

func (s *presenceService) IsOnline(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	online := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		online[id] = false
	}
	if s.rdb == nil || len(userIDs) == 0 {
		return online, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[uuid.UUID]*redis.IntCmd, len(userIDs))
	for _, id := range userIDs {
		cmds[id] = pipe.Exists(ctx, presenceKeyPrefix+id.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("Presence", "Presence lookup failed", map[string]interface{}{"error": err})
		return online, nil
	}

	for id, cmd := range cmds {
		online[id] = cmd.Val() > 0
	}
	return online, nil
}
