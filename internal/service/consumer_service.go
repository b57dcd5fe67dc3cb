package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"nous-core/internal/constant"
	"nous-core/internal/dto"
	"nous-core/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService deletes the temp, audio and video files of a session.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	dirs       []string
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, dirs []string, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  constant.ArtifactCleanupTopic,
		dirs:       dirs,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.CleanupArtifactsMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.SessionID == "" {
		cs.logger.Warn("CLEANUP", "Dropping unreadable cleanup message", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack()
		return
	}

	removed := cs.removeArtifacts(payload.SessionID)
	cs.logger.Info("CLEANUP", "Session artifacts removed", map[string]interface{}{
		"session_id": payload.SessionID,
		"files":      removed,
	})
	msg.Ack()
}

// removeArtifacts deletes files whose name contains the session id. Failures
// are logged and skipped; a later request can retry them.
func (cs *consumerService) removeArtifacts(sessionID string) int {
	pattern := "*" + escapeGlob(sessionID) + "*"
	removed := 0
	for _, dir := range cs.dirs {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, path := range matches {
			if err := os.RemoveAll(path); err != nil {
				cs.logger.Warn("CLEANUP", "Failed to remove artifact", map[string]interface{}{"path": path, "error": err.Error()})
				continue
			}
			removed++
		}
	}
	return removed
}

func escapeGlob(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
