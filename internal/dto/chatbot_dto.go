package dto

import (
	"time"

	"nous-core/internal/entity"
	"nous-core/pkg/gateway"
)

type SendChatRequest struct {
	Message        string            `json:"message" validate:"required"`
	LessonID       entity.FlexibleID `json:"lesson_id" validate:"required"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Mode           string            `json:"mode,omitempty"`
}

type ChatReply struct {
	Response       string                 `json:"response"`
	ConversationID string                 `json:"conversation_id"`
	RelatedLessons []gateway.LessonRecord `json:"related_lessons"`
	Suggestions    []string               `json:"suggestions"`
	Timestamp      time.Time              `json:"timestamp"`
}

type ChatLessonSummary struct {
	ID     string                `json:"id"`
	Title  string                `json:"title"`
	Course *gateway.CourseRecord `json:"course,omitempty"`
}

type ChatContextResponse struct {
	Lesson         ChatLessonSummary `json:"lesson"`
	Keywords       []string          `json:"keywords"`
	ContextSummary string            `json:"context_summary"`
}

type RelatedLessonsResponse struct {
	RelatedLessons []gateway.LessonRecord `json:"related_lessons"`
}

type ChatHealthResponse struct {
	Status         string    `json:"status"`
	LLMAvailable   bool      `json:"llm_available"`
	Timestamp      time.Time `json:"timestamp"`
	ActiveSessions int       `json:"active_sessions"`
	Error          string    `json:"error,omitempty"`
}

type ChatCleanupResponse struct {
	Message        string `json:"message"`
	ActiveSessions int    `json:"active_sessions"`
}

// Chat stream event types.
const (
	ChatEventMessage  = "message"
	ChatEventPing     = "ping"
	ChatEventPong     = "pong"
	ChatEventTyping   = "typing"
	ChatEventToken    = "token"
	ChatEventComplete = "complete"
	ChatEventError    = "error"
)

// ChatStreamRequest is a frame sent by the chat websocket client.
type ChatStreamRequest struct {
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	LessonID entity.FlexibleID `json:"lesson_id"`
	Mode     string            `json:"mode,omitempty"`
}

// ChatStreamEvent is a frame pushed to the chat websocket client.
type ChatStreamEvent struct {
	Type           string                 `json:"type"`
	Content        string                 `json:"content,omitempty"`
	Partial        bool                   `json:"partial,omitempty"`
	RelatedLessons []gateway.LessonRecord `json:"related_lessons,omitempty"`
	Suggestions    []string               `json:"suggestions,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}
