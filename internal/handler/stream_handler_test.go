package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/entity"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/service"
	internalWS "nous-core/internal/websocket"
)

type streamCall struct {
	key, lessonID, message, mode, token string
}

type fakeChat struct {
	service.IChatbotService
	calls chan streamCall
}

func (f *fakeChat) Attach(id, lessonID, userID string) *entity.ChatSession {
	return entity.NewChatSession(id, lessonID, userID)
}

func (f *fakeChat) StreamRespond(_ context.Context, key string, s *entity.ChatSession, message, mode, token string) {
	f.calls <- streamCall{key: key, lessonID: s.LessonID, message: message, mode: mode, token: token}
}

type fakeProgress struct {
	service.IGenerationService
	records map[string]entity.ProgressRecord
}

func (f *fakeProgress) Progress(id string) (entity.ProgressRecord, bool) {
	rec, ok := f.records[id]
	return rec, ok
}

func newChatClient(t *testing.T) (*StreamHandler, *fakeChat, *internalWS.Client) {
	t.Helper()
	chat := &fakeChat{calls: make(chan streamCall, 1)}
	hub := internalWS.NewHub("chat", nil, logger.NewNopLogger())
	h := NewStreamHandler(&fakeProgress{}, chat, nil, hub, logger.NewNopLogger())
	client := internalWS.NewClient(hub, nil, "conv-1", nil)
	hub.Attach(client)
	return h, chat, client
}

func readEvent(t *testing.T, c *internalWS.Client) dto.ChatStreamEvent {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev dto.ChatStreamEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no frame sent")
	}
	return dto.ChatStreamEvent{}
}

func TestHandleChatFrame(t *testing.T) {
	t.Run("ping answers pong", func(t *testing.T) {
		h, _, client := newChatClient(t)
		h.handleChatFrame(context.Background(), client, []byte(`{"type":"ping"}`), "")
		assert.Equal(t, dto.ChatEventPong, readEvent(t, client).Type)
	})

	t.Run("missing fields", func(t *testing.T) {
		h, _, client := newChatClient(t)
		h.handleChatFrame(context.Background(), client, []byte(`{"type":"message","content":"hi"}`), "")
		ev := readEvent(t, client)
		assert.Equal(t, dto.ChatEventError, ev.Type)
		assert.Equal(t, constant.ChatMissingFieldsMsg, ev.Content)
	})

	t.Run("unreadable frame", func(t *testing.T) {
		h, _, client := newChatClient(t)
		h.handleChatFrame(context.Background(), client, []byte(`{`), "")
		assert.Equal(t, dto.ChatEventError, readEvent(t, client).Type)
	})

	t.Run("message streams a reply", func(t *testing.T) {
		h, chat, client := newChatClient(t)
		h.handleChatFrame(context.Background(), client, []byte(`{"type":"message","content":"What is a cell?","lesson_id":7}`), "tok")

		select {
		case call := <-chat.calls:
			assert.Equal(t, streamCall{key: "conv-1", lessonID: "7", message: "What is a cell?", mode: constant.ChatModeDefault, token: "tok"}, call)
		case <-time.After(time.Second):
			t.Fatal("no reply streamed")
		}
	})
}

func TestProgressGreeting(t *testing.T) {
	rec := entity.NewProgressRecord(entity.StageNarrating, constant.MsgNarrating)
	h := NewStreamHandler(&fakeProgress{records: map[string]entity.ProgressRecord{"lesson_1": rec}}, nil, nil, nil, logger.NewNopLogger())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(h.progressGreeting("lesson_1"), &got))
	assert.Equal(t, "narrating", got["stage"])
	assert.Equal(t, float64(40), got["progress"])

	assert.Nil(t, h.progressGreeting("lesson_unknown"))
}
