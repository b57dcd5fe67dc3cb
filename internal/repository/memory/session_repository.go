package memory

import (
	"time"

	"nous-core/internal/entity"
	"nous-core/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ChatSessionRepository keeps conversations in memory. Every Save restarts
// the session's expiry, so sessions die after ttl of inactivity.
type ChatSessionRepository struct {
	cache *cache.Cache
}

var _ contract.ChatSessionRepository = (*ChatSessionRepository)(nil)

func NewChatSessionRepository(ttl, cleanupInterval time.Duration) *ChatSessionRepository {
	return &ChatSessionRepository{cache: cache.New(ttl, cleanupInterval)}
}

func (r *ChatSessionRepository) Save(session *entity.ChatSession) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *ChatSessionRepository) Get(id string) (*entity.ChatSession, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

func (r *ChatSessionRepository) Delete(id string) {
	r.cache.Delete(id)
}

// DeleteExpired purges expired sessions now and reports how many went.
func (r *ChatSessionRepository) DeleteExpired() int {
	before := r.cache.ItemCount()
	r.cache.DeleteExpired()
	return before - r.cache.ItemCount()
}

func (r *ChatSessionRepository) Count() int {
	return r.cache.ItemCount()
}
