package service

import (
	"context"
	"time"

	"nous-core/internal/pkg/logger"
	"nous-core/pkg/events"
)

// EventPublisher is the lifecycle event sink. *nats.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEventService interface {
	Emit(eventType, sessionID string, data map[string]interface{})
}

// eventService publishes best-effort: a broker outage never fails a
// generation run.
type eventService struct {
	publisher EventPublisher
	logger    logger.ILogger
}

// NewEventService accepts a nil publisher, in which case events are only
// logged.
func NewEventService(publisher EventPublisher, log logger.ILogger) IEventService {
	return &eventService{publisher: publisher, logger: log}
}

func (s *eventService) Emit(eventType, sessionID string, data map[string]interface{}) {
	event := events.New(eventType, sessionID, data)
	if s.publisher == nil {
		s.logger.Debug("EVENTS", "No event broker configured, dropping event", map[string]interface{}{"type": eventType, "session_id": sessionID})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":       eventType,
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
