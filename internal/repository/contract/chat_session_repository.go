package contract

import "nous-core/internal/entity"

type ChatSessionRepository interface {
	// Save stores the session and restarts its inactivity timer.
	Save(session *entity.ChatSession)
	Get(id string) (*entity.ChatSession, bool)
	Delete(id string)
	DeleteExpired() int
	Count() int
}
