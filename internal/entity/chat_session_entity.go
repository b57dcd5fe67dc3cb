package entity

import (
	"sync"
	"time"

	"nous-core/pkg/gateway"
)

// MaxChatHistory bounds ChatSession.History; the oldest entries go first.
const MaxChatHistory = 20

// LessonContext is the per-session cache of what the assistant knows about
// the lesson being discussed.
type LessonContext struct {
	Lesson      gateway.LessonRecord  `json:"lesson"`
	Course      *gateway.CourseRecord `json:"course,omitempty"`
	TextContent string                `json:"text_content"`
	Keywords    []string              `json:"keywords"`
	Summary     string                `json:"context_summary"`
}

type ChatSession struct {
	ID             string
	LessonID       string
	UserID         string
	History        []ChatMessage
	Context        *LessonContext
	CreatedAt      time.Time
	LastActivityAt time.Time

	// mu serializes turns within one conversation.
	mu sync.Mutex
}

func NewChatSession(id, lessonID, userID string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:             id,
		LessonID:       lessonID,
		UserID:         userID,
		History:        []ChatMessage{},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

func (s *ChatSession) Lock()   { s.mu.Lock() }
func (s *ChatSession) Unlock() { s.mu.Unlock() }

// AddMessage appends a turn and trims history to MaxChatHistory.
func (s *ChatSession) AddMessage(role, content string) {
	now := time.Now()
	s.History = append(s.History, ChatMessage{Role: role, Content: content, Timestamp: now})
	if len(s.History) > MaxChatHistory {
		s.History = append([]ChatMessage(nil), s.History[len(s.History)-MaxChatHistory:]...)
	}
	s.LastActivityAt = now
}

// RecentHistory returns up to n of the latest messages.
func (s *ChatSession) RecentHistory(n int) []ChatMessage {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	return s.History[len(s.History)-n:]
}
