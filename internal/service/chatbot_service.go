package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/entity"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/repository/contract"
	"nous-core/pkg/gateway"
	"nous-core/pkg/indexer"
	"nous-core/pkg/lexical"
	"nous-core/pkg/llm"

	"github.com/google/uuid"
)

var errLLMDisabled = errors.New("local LLM is disabled")

// IChatbotService answers questions about a lesson, keeping one
// conversation per session.
type IChatbotService interface {
	// GetOrCreate returns the conversation with id, or a new one under a
	// fresh id when id is empty, unknown or expired.
	GetOrCreate(id, lessonID, userID string) *entity.ChatSession
	// Attach returns the conversation with id, creating it under that same
	// id when missing. Stream connections name their conversation.
	Attach(id, lessonID, userID string) *entity.ChatSession
	Respond(ctx context.Context, session *entity.ChatSession, message, mode, token string) *dto.ChatReply
	StreamRespond(ctx context.Context, streamKey string, session *entity.ChatSession, message, mode, token string)
	LessonContext(ctx context.Context, lessonID, token string) (*dto.ChatContextResponse, error)
	RelatedLessons(ctx context.Context, lessonID string, limit int, token string) ([]gateway.LessonRecord, error)
	Health(ctx context.Context) *dto.ChatHealthResponse
	Cleanup() *dto.ChatCleanupResponse
	RunCleanup(ctx context.Context, interval time.Duration) error
}

type chatbotService struct {
	llmProvider llm.LLMProvider
	lessons     gateway.LessonStore
	sessions    contract.ChatSessionRepository
	stream      StreamPusher
	prompts     map[string]string
	logger      logger.ILogger
}

// NewChatbotService accepts a nil provider when the local LLM is disabled;
// every reply is then the fallback.
func NewChatbotService(
	llmProvider llm.LLMProvider,
	lessons gateway.LessonStore,
	sessions contract.ChatSessionRepository,
	stream StreamPusher,
	prompts map[string]string,
	log logger.ILogger,
) IChatbotService {
	if prompts == nil {
		prompts = constant.DefaultChatSystemPrompts()
	}
	return &chatbotService{
		llmProvider: llmProvider,
		lessons:     lessons,
		sessions:    sessions,
		stream:      stream,
		prompts:     prompts,
		logger:      log,
	}
}

func (cs *chatbotService) GetOrCreate(id, lessonID, userID string) *entity.ChatSession {
	if id != "" {
		if session, ok := cs.sessions.Get(id); ok {
			return session
		}
	}
	session := entity.NewChatSession(uuid.NewString(), lessonID, userID)
	cs.sessions.Save(session)
	return session
}

func (cs *chatbotService) Attach(id, lessonID, userID string) *entity.ChatSession {
	if session, ok := cs.sessions.Get(id); ok {
		return session
	}
	session := entity.NewChatSession(id, lessonID, userID)
	cs.sessions.Save(session)
	return session
}

func (cs *chatbotService) systemPrompt(mode string) string {
	if p, ok := cs.prompts[mode]; ok {
		return p
	}
	return cs.prompts[constant.ChatModeDefault]
}

// ensureContext loads the lesson context once per session. A failed load is
// not cached so the next turn retries.
func (cs *chatbotService) ensureContext(ctx context.Context, session *entity.ChatSession, token string) *entity.LessonContext {
	if session.Context != nil {
		return session.Context
	}
	lc, err := cs.loadContext(ctx, session.LessonID, token)
	if err != nil {
		cs.logger.Warn("CHATBOT", "Failed to load lesson context", map[string]interface{}{
			"session_id": session.ID,
			"lesson_id":  session.LessonID,
			"error":      err.Error(),
		})
		return nil
	}
	session.Context = lc
	return lc
}

func (cs *chatbotService) loadContext(ctx context.Context, lessonID, token string) (*entity.LessonContext, error) {
	lesson, err := cs.lessons.GetLesson(ctx, lessonID, token)
	if err != nil {
		return nil, err
	}

	var course *gateway.CourseRecord
	if lesson.CourseID != "" {
		course, err = cs.lessons.GetCourse(ctx, lesson.CourseID, token)
		if err != nil {
			cs.logger.Debug("CHATBOT", "Course lookup failed", map[string]interface{}{"course_id": lesson.CourseID, "error": err.Error()})
			course = nil
		}
	}

	text := lexical.PlainText(lesson.Content)
	return &entity.LessonContext{
		Lesson:      *lesson,
		Course:      course,
		TextContent: text,
		Keywords:    indexer.Keywords(text),
		Summary:     indexer.Summarize(text),
	}, nil
}

// buildMessages assembles the prompt for the latest user message, which must
// already be the last history entry.
func (cs *chatbotService) buildMessages(session *entity.ChatSession, message, mode string, lc *entity.LessonContext) []llm.Message {
	summary := ""
	if lc != nil {
		summary = lc.Summary
	}

	var sb strings.Builder
	sb.WriteString("Lesson Content: ")
	sb.WriteString(summary)
	sb.WriteString("\n\n")

	// The newest entry is the message being answered.
	prior := session.RecentHistory(constant.ChatRecentTurns + 1)
	if len(prior) > 0 {
		prior = prior[:len(prior)-1]
	}
	if len(prior) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range prior {
			fmt.Fprintf(&sb, "%s: %s\n", roleTitle(m.Role), m.Content)
		}
		sb.WriteString("\n")
	}

	return []llm.Message{
		{Role: constant.ChatMessageRoleSystem, Content: cs.systemPrompt(mode)},
		{Role: constant.ChatMessageRoleSystem, Content: "Context: " + sb.String()},
		{Role: constant.ChatMessageRoleUser, Content: message},
	}
}

func roleTitle(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func (cs *chatbotService) ping(ctx context.Context) error {
	if cs.llmProvider == nil {
		return errLLMDisabled
	}
	return cs.llmProvider.Ping(ctx)
}

// Respond answers one message. LLM failures never surface as errors; the
// reply carries the fallback text instead.
func (cs *chatbotService) Respond(ctx context.Context, session *entity.ChatSession, message, mode, token string) *dto.ChatReply {
	session.Lock()
	defer session.Unlock()
	defer cs.sessions.Save(session)

	session.AddMessage(constant.ChatMessageRoleUser, message)
	lc := cs.ensureContext(ctx, session, token)
	messages := cs.buildMessages(session, message, mode, lc)

	response, err := cs.generate(ctx, messages)
	if err != nil {
		cs.logger.Error("CHATBOT", "Failed to generate response", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
		session.AddMessage(constant.ChatMessageRoleAssistant, constant.ChatFallbackReply)
		return &dto.ChatReply{
			Response:       constant.ChatFallbackReply,
			ConversationID: session.ID,
			RelatedLessons: []gateway.LessonRecord{},
			Suggestions:    append([]string{}, constant.ChatFallbackSuggestions...),
			Timestamp:      time.Now(),
		}
	}

	session.AddMessage(constant.ChatMessageRoleAssistant, response)
	return &dto.ChatReply{
		Response:       response,
		ConversationID: session.ID,
		RelatedLessons: cs.related(ctx, session.LessonID, lc, constant.ChatRelatedLessons, token),
		Suggestions:    Suggestions(message, mode),
		Timestamp:      time.Now(),
	}
}

func (cs *chatbotService) generate(ctx context.Context, messages []llm.Message) (string, error) {
	if err := cs.ping(ctx); err != nil {
		return "", fmt.Errorf("LLM service is not available: %w", err)
	}
	response, err := cs.llmProvider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", errors.New("LLM returned an empty response")
	}
	return response, nil
}

// StreamRespond answers one message over the stream keyed by streamKey: a
// typing event, token events, then a single complete or error event.
func (cs *chatbotService) StreamRespond(ctx context.Context, streamKey string, session *entity.ChatSession, message, mode, token string) {
	session.Lock()
	defer session.Unlock()
	defer cs.sessions.Save(session)

	cs.stream.Push(streamKey, dto.ChatStreamEvent{
		Type:      dto.ChatEventTyping,
		Content:   constant.ChatTypingMessage,
		Timestamp: time.Now(),
	})

	session.AddMessage(constant.ChatMessageRoleUser, message)
	lc := cs.ensureContext(ctx, session, token)
	messages := cs.buildMessages(session, message, mode, lc)

	response, err := cs.streamTokens(ctx, streamKey, messages)
	if err != nil {
		cs.logger.Error("CHATBOT", "Failed to stream response", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
		session.AddMessage(constant.ChatMessageRoleAssistant, constant.ChatFallbackReply)
		cs.stream.Push(streamKey, dto.ChatStreamEvent{
			Type:           dto.ChatEventError,
			Content:        constant.ChatFallbackReply,
			ConversationID: session.ID,
			Timestamp:      time.Now(),
		})
		return
	}

	session.AddMessage(constant.ChatMessageRoleAssistant, response)
	cs.stream.Push(streamKey, dto.ChatStreamEvent{
		Type:           dto.ChatEventComplete,
		Content:        response,
		RelatedLessons: cs.related(ctx, session.LessonID, lc, constant.ChatRelatedLessons, token),
		Suggestions:    Suggestions(message, mode),
		ConversationID: session.ID,
		Timestamp:      time.Now(),
	})
}

func (cs *chatbotService) streamTokens(ctx context.Context, streamKey string, messages []llm.Message) (string, error) {
	if err := cs.ping(ctx); err != nil {
		return "", fmt.Errorf("LLM service is not available: %w", err)
	}
	response, err := cs.llmProvider.Stream(ctx, messages, func(token string) error {
		cs.stream.Push(streamKey, dto.ChatStreamEvent{
			Type:      dto.ChatEventToken,
			Content:   token,
			Partial:   true,
			Timestamp: time.Now(),
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", errors.New("LLM returned an empty response")
	}
	return response, nil
}

// related looks up lessons sharing keywords with lc, excluding the lesson
// itself. Lookup failures yield an empty list.
func (cs *chatbotService) related(ctx context.Context, lessonID string, lc *entity.LessonContext, limit int, token string) []gateway.LessonRecord {
	related := []gateway.LessonRecord{}
	if lc == nil || len(lc.Keywords) == 0 {
		return related
	}
	found, err := cs.lessons.SearchLessons(ctx, lc.Keywords, limit+1, token)
	if err != nil {
		cs.logger.Warn("CHATBOT", "Related lesson lookup failed", map[string]interface{}{"lesson_id": lessonID, "error": err.Error()})
		return related
	}
	for _, l := range found {
		if l.ID == lessonID {
			continue
		}
		related = append(related, l)
		if len(related) == limit {
			break
		}
	}
	return related
}

// Suggestions proposes follow-up questions for a turn.
func Suggestions(message, mode string) []string {
	lower := strings.ToLower(message)
	var pool []string
	switch {
	case mode == constant.ChatModeQuiz:
		pool = constant.ChatQuizSuggestions
	case strings.Contains(lower, "explain"):
		pool = constant.ChatExplainSuggestions
	case strings.Contains(lower, "summary"):
		pool = constant.ChatSummarySuggestions
	default:
		pool = constant.ChatDefaultSuggestions
	}
	if len(pool) > constant.ChatMaxSuggestions {
		pool = pool[:constant.ChatMaxSuggestions]
	}
	return append([]string{}, pool...)
}

func (cs *chatbotService) LessonContext(ctx context.Context, lessonID, token string) (*dto.ChatContextResponse, error) {
	lc, err := cs.loadContext(ctx, lessonID, token)
	if err != nil {
		return nil, err
	}
	keywords := lc.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &dto.ChatContextResponse{
		Lesson: dto.ChatLessonSummary{
			ID:     lc.Lesson.ID,
			Title:  lc.Lesson.Title,
			Course: lc.Course,
		},
		Keywords:       keywords,
		ContextSummary: lc.Summary,
	}, nil
}

func (cs *chatbotService) RelatedLessons(ctx context.Context, lessonID string, limit int, token string) ([]gateway.LessonRecord, error) {
	lc, err := cs.loadContext(ctx, lessonID, token)
	if err != nil {
		return nil, err
	}
	return cs.related(ctx, lessonID, lc, limit, token), nil
}

func (cs *chatbotService) Health(ctx context.Context) *dto.ChatHealthResponse {
	available := cs.ping(ctx) == nil
	status := "healthy"
	if !available {
		status = "degraded"
	}
	return &dto.ChatHealthResponse{
		Status:         status,
		LLMAvailable:   available,
		Timestamp:      time.Now(),
		ActiveSessions: cs.sessions.Count(),
	}
}

func (cs *chatbotService) Cleanup() *dto.ChatCleanupResponse {
	removed := cs.sessions.DeleteExpired()
	return &dto.ChatCleanupResponse{
		Message:        fmt.Sprintf("Cleaned up %d expired chat sessions", removed),
		ActiveSessions: cs.sessions.Count(),
	}
}

// RunCleanup evicts expired conversations every interval until ctx ends.
func (cs *chatbotService) RunCleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res := cs.Cleanup()
			cs.logger.Debug("CHATBOT", res.Message, map[string]interface{}{"active_sessions": res.ActiveSessions})
		}
	}
}
