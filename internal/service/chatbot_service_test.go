package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/entity"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/repository/memory"
	"nous-core/pkg/gateway"
	"nous-core/pkg/lexical"
)

type chatFixture struct {
	svc     IChatbotService
	llm     *fakeLLM
	lessons *fakeLessons
	repo    *memory.ChatSessionRepository
	stream  *fakeStream
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		llm:     &fakeLLM{reply: "Cells are small.", tokens: []string{"Cells ", "are ", "small."}},
		lessons: newFakeLessons(),
		repo:    memory.NewChatSessionRepository(time.Hour, time.Hour),
		stream:  newFakeStream(),
	}
	f.lessons.lessons["7"] = gateway.LessonRecord{
		ID:       "7",
		Title:    "Cell Biology",
		CourseID: "3",
		Content: lexical.NewDocument([]lexical.Node{
			lexical.NewParagraph("Cells divide. Cells grow. Mitochondria power cells."),
		}),
	}
	f.lessons.courses["3"] = gateway.CourseRecord{ID: "3", Title: "Biology"}
	f.lessons.search = []gateway.LessonRecord{
		{ID: "7", Title: "Cell Biology"},
		{ID: "8", Title: "Cell Division"},
		{ID: "9", Title: "Cell Walls"},
		{ID: "10", Title: "Cell Membranes"},
		{ID: "11", Title: "Cell Signalling"},
	}
	f.svc = NewChatbotService(f.llm, f.lessons, f.repo, f.stream, nil, logger.NewNopLogger())
	return f
}

func TestChat_GetOrCreate(t *testing.T) {
	f := newChatFixture(t)

	s1 := f.svc.GetOrCreate("", "7", "u1")
	assert.NotEmpty(t, s1.ID)
	assert.Same(t, s1, f.svc.GetOrCreate(s1.ID, "7", "u1"))

	s2 := f.svc.GetOrCreate("expired-id", "7", "u1")
	assert.NotEqual(t, "expired-id", s2.ID)

	s3 := f.svc.Attach("ws-key", "7", "")
	assert.Equal(t, "ws-key", s3.ID)
	assert.Same(t, s3, f.svc.Attach("ws-key", "7", ""))
}

func TestChat_TwoTurnHistory(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.GetOrCreate("", "7", "")

	first := f.svc.Respond(context.Background(), session, "What is a cell?", constant.ChatModeDefault, "tok")
	assert.Equal(t, "Cells are small.", first.Response)
	assert.Equal(t, session.ID, first.ConversationID)

	f.llm.reply = "They divide."
	second := f.svc.Respond(context.Background(), session, "How do they grow?", constant.ChatModeDefault, "tok")
	assert.Equal(t, "They divide.", second.Response)

	require.Len(t, session.History, 4)
	assert.Equal(t, constant.ChatMessageRoleUser, session.History[2].Role)
	assert.Equal(t, "They divide.", session.History[3].Content)

	prompt := f.llm.lastRequest()
	require.Len(t, prompt, 3)
	assert.Equal(t, constant.ChatSystemPromptDefault, prompt[0].Content)
	assert.True(t, strings.HasPrefix(prompt[1].Content, "Context: Lesson Content: Cells divide."))
	assert.Contains(t, prompt[1].Content, "Recent conversation:\nUser: What is a cell?\nAssistant: Cells are small.\n")
	assert.NotContains(t, prompt[1].Content, "How do they grow?")
	assert.Equal(t, "How do they grow?", prompt[2].Content)

	// The lesson context was loaded once and reused.
	assert.Equal(t, 1, f.lessons.getCalls)
	require.NotNil(t, session.Context)
	assert.Equal(t, "Biology", session.Context.Course.Title)
	assert.Equal(t, "cells", session.Context.Keywords[0])
}

func TestChat_PromptKeepsRecentTurns(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.GetOrCreate("", "7", "")

	for i := 1; i <= 4; i++ {
		f.llm.reply = fmt.Sprintf("answer %d", i)
		f.svc.Respond(context.Background(), session, fmt.Sprintf("question %d", i), "", "tok")
	}
	f.svc.Respond(context.Background(), session, "question 5", "", "tok")

	ctxMsg := f.llm.lastRequest()[1].Content
	assert.Contains(t, ctxMsg, "Recent conversation:\nAssistant: answer 2\nUser: question 3\nAssistant: answer 3\nUser: question 4\nAssistant: answer 4\n")
	assert.NotContains(t, ctxMsg, "question 2")
	assert.NotContains(t, ctxMsg, "answer 1")
	assert.NotContains(t, ctxMsg, "question 5")
}

func TestChat_RelatedLessonsExcludeCurrent(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.GetOrCreate("", "7", "")

	reply := f.svc.Respond(context.Background(), session, "hi", "", "tok")

	require.Len(t, reply.RelatedLessons, constant.ChatRelatedLessons)
	for _, l := range reply.RelatedLessons {
		assert.NotEqual(t, "7", l.ID)
	}
}

func TestChat_LLMUnavailableFallsBack(t *testing.T) {
	f := newChatFixture(t)
	f.llm.pingErr = errors.New("dial tcp 10.0.0.5:8080: connection refused")
	session := f.svc.GetOrCreate("", "7", "")

	reply := f.svc.Respond(context.Background(), session, "Explain mitosis", constant.ChatModeDefault, "tok")

	assert.Equal(t, constant.ChatFallbackReply, reply.Response)
	assert.Equal(t, constant.ChatFallbackSuggestions, reply.Suggestions)
	assert.Empty(t, reply.RelatedLessons)
	body, err := json.Marshal(reply)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "10.0.0.5")
	assert.NotContains(t, string(body), "connection refused")
	assert.NotContains(t, string(body), "not available")
	require.Len(t, session.History, 2)
	assert.Equal(t, constant.ChatFallbackReply, session.History[1].Content)
	assert.Empty(t, f.llm.requests, "no generation when the backend is down")
}

func TestChat_ContextNotCachedOnFailure(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.GetOrCreate("", "7", "")

	f.svc.Respond(context.Background(), session, "hi", "", "")
	assert.Nil(t, session.Context)

	f.svc.Respond(context.Background(), session, "hi again", "", "tok")
	assert.NotNil(t, session.Context)
	assert.Equal(t, 2, f.lessons.getCalls)
}

func TestChat_HistoryCapped(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.GetOrCreate("", "7", "")

	for i := 0; i < 15; i++ {
		f.svc.Respond(context.Background(), session, "q", "", "tok")
	}
	assert.Len(t, session.History, entity.MaxChatHistory)
}

func TestSuggestions(t *testing.T) {
	cases := []struct {
		message string
		mode    string
		want    []string
	}{
		{"anything", constant.ChatModeQuiz, constant.ChatQuizSuggestions},
		{"Please EXPLAIN osmosis", "", constant.ChatExplainSuggestions},
		{"give me a summary", "", constant.ChatSummarySuggestions},
		{"hello", "", constant.ChatDefaultSuggestions[:3]},
	}
	for _, tc := range cases {
		got := Suggestions(tc.message, tc.mode)
		assert.Equal(t, tc.want, got, tc.message)
		assert.LessOrEqual(t, len(got), constant.ChatMaxSuggestions)
	}
}

func TestChat_StreamRespond(t *testing.T) {
	f := newChatFixture(t)
	session := f.svc.Attach("ws-1", "7", "")

	f.svc.StreamRespond(context.Background(), "ws-1", session, "What is a cell?", constant.ChatModeQuiz, "tok")

	frames := f.stream.frames("ws-1")
	require.Len(t, frames, 5)
	assert.Equal(t, dto.ChatEventTyping, frames[0]["type"])
	assert.Equal(t, constant.ChatTypingMessage, frames[0]["content"])
	for _, fr := range frames[1:4] {
		assert.Equal(t, dto.ChatEventToken, fr["type"])
		assert.Equal(t, true, fr["partial"])
	}
	done := frames[4]
	assert.Equal(t, dto.ChatEventComplete, done["type"])
	assert.Equal(t, "Cells are small.", done["content"])
	assert.Equal(t, "ws-1", done["conversation_id"])
	assert.Len(t, done["suggestions"], 3)
	assert.Len(t, session.History, 2)
}

func TestChat_StreamRespondError(t *testing.T) {
	f := newChatFixture(t)
	f.llm.chatErr = errors.New("model crashed")
	session := f.svc.Attach("ws-2", "7", "")

	f.svc.StreamRespond(context.Background(), "ws-2", session, "hi", "", "tok")

	frames := f.stream.frames("ws-2")
	require.Len(t, frames, 2)
	assert.Equal(t, dto.ChatEventTyping, frames[0]["type"])
	assert.Equal(t, dto.ChatEventError, frames[1]["type"])
	assert.Equal(t, constant.ChatFallbackReply, frames[1]["content"])
}

func TestChat_LessonContext(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.svc.LessonContext(context.Background(), "7", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology", res.Lesson.Title)
	assert.Equal(t, "Biology", res.Lesson.Course.Title)
	assert.Contains(t, res.Keywords, "cells")
	assert.Contains(t, res.ContextSummary, "Mitochondria power cells.")

	_, err = f.svc.LessonContext(context.Background(), "404", "tok")
	assert.True(t, gateway.IsKind(err, gateway.NotFound))
}

func TestChat_RelatedLessonsEndpoint(t *testing.T) {
	f := newChatFixture(t)

	got, err := f.svc.RelatedLessons(context.Background(), "7", 2, "tok")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "8", got[0].ID)
}

func TestChat_HealthAndCleanup(t *testing.T) {
	f := newChatFixture(t)
	f.svc.GetOrCreate("", "7", "")

	h := f.svc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.LLMAvailable)
	assert.Equal(t, 1, h.ActiveSessions)

	f.llm.pingErr = errors.New("down")
	assert.Equal(t, "degraded", f.svc.Health(context.Background()).Status)

	res := f.svc.Cleanup()
	assert.Equal(t, "Cleaned up 0 expired chat sessions", res.Message)
	assert.Equal(t, 1, res.ActiveSessions)
}

func TestChat_DisabledLLM(t *testing.T) {
	f := newChatFixture(t)
	svc := NewChatbotService(nil, f.lessons, f.repo, f.stream, nil, logger.NewNopLogger())
	session := svc.GetOrCreate("", "7", "")

	reply := svc.Respond(context.Background(), session, "hi", "", "tok")
	assert.Equal(t, constant.ChatFallbackReply, reply.Response)
	assert.False(t, svc.Health(context.Background()).LLMAvailable)
}
