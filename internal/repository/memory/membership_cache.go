package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MembershipCache caches positive participant checks. Membership is
// immutable once a conversation exists, so positives never go stale;
// negatives are not cached because a conversation may be created at any time.
type MembershipCache struct {
	cache *cache.Cache
}

func NewMembershipCache() *MembershipCache {
	c := cache.New(5*time.Minute, 10*time.Minute)
	return &MembershipCache{cache: c}
}

func key(conversationID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", conversationID, userID)
}

func (m *MembershipCache) IsMember(conversationID, userID uuid.UUID) bool {
	_, found := m.cache.Get(key(conversationID, userID))
	return found
}

func (m *MembershipCache) SetMember(conversationID, userID uuid.UUID) {
	m.cache.Set(key(conversationID, userID), struct{}{}, cache.DefaultExpiration)
}
