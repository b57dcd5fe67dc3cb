package handler

import (
	"context"
	"encoding/json"
	"time"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/pkg/logger"
	"nous-core/internal/pkg/serverutils"
	"nous-core/internal/service"
	internalWS "nous-core/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamHandler serves the lesson progress and chat websockets.
type StreamHandler struct {
	generation  service.IGenerationService
	chat        service.IChatbotService
	progressHub *internalWS.Hub
	chatHub     *internalWS.Hub
	logger      logger.ILogger
}

func NewStreamHandler(generation service.IGenerationService, chat service.IChatbotService, progressHub, chatHub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		generation:  generation,
		chat:        chat,
		progressHub: progressHub,
		chatHub:     chatHub,
		logger:      log,
	}
}

// RegisterRoutes registers the websocket routes.
func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/lesson-progress/:session_id", h.ServeProgress)
	router.Get("/ws/chat/:session_id", h.ServeChat)
}

// ServeProgress streams progress records for one generation session. The
// latest known record is replayed on connect.
func (h *StreamHandler) ServeProgress(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		sessionID := conn.Params("session_id")
		h.logger.Info("STREAM", "Progress stream opened", map[string]interface{}{"session_id": sessionID})

		internalWS.ServeWs(h.progressHub, conn, sessionID, h.progressGreeting(sessionID), nil)

		h.logger.Info("STREAM", "Progress stream closed", map[string]interface{}{"session_id": sessionID})
	})(c)
}

func (h *StreamHandler) progressGreeting(sessionID string) []byte {
	rec, ok := h.generation.Progress(sessionID)
	if !ok {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	return data
}

// ServeChat runs a chat conversation keyed by the path id. The lesson
// backend credential arrives as the token query parameter.
func (h *StreamHandler) ServeChat(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		sessionID := conn.Params("session_id")
		token := conn.Query("token")
		if token == "" {
			h.logger.Warn("STREAM", "Chat stream opened without token", map[string]interface{}{"session_id": sessionID})
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		internalWS.ServeWs(h.chatHub, conn, sessionID, nil, func(client *internalWS.Client, data []byte) {
			h.handleChatFrame(ctx, client, data, token)
		})

		h.logger.Info("STREAM", "Chat stream closed", map[string]interface{}{"session_id": sessionID})
	})(c)
}

func (h *StreamHandler) handleChatFrame(ctx context.Context, client *internalWS.Client, data []byte, token string) {
	var frame dto.ChatStreamRequest
	if err := json.Unmarshal(data, &frame); err != nil {
		h.reply(client, dto.ChatStreamEvent{Type: dto.ChatEventError, Content: "Invalid message format", Timestamp: time.Now()})
		return
	}

	switch frame.Type {
	case dto.ChatEventPing:
		h.reply(client, dto.ChatStreamEvent{Type: dto.ChatEventPong, Timestamp: time.Now()})
	case dto.ChatEventMessage:
		if frame.Content == "" || frame.LessonID == "" {
			h.reply(client, dto.ChatStreamEvent{Type: dto.ChatEventError, Content: constant.ChatMissingFieldsMsg, Timestamp: time.Now()})
			return
		}
		mode := frame.Mode
		if mode == "" {
			mode = constant.ChatModeDefault
		}
		session := h.chat.Attach(client.Key, frame.LessonID.String(), serverutils.UserIDFromToken(token))
		// Answer off the read loop so pongs keep the connection alive while
		// the model is generating. The session lock keeps turns in order.
		go h.chat.StreamRespond(ctx, client.Key, session, frame.Content, mode, token)
	}
}

func (h *StreamHandler) reply(client *internalWS.Client, event dto.ChatStreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	internalWS.Reply(client, data)
}
