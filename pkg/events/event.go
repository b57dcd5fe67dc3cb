package events

import "time"

// Lesson lifecycle event codes.
const (
	GenerationCompleted = "GENERATION_COMPLETED"
	GenerationFailed    = "GENERATION_FAILED"
	GenerationCancelled = "GENERATION_CANCELLED"
	LessonPublished     = "LESSON_PUBLISHED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "LESSON_PUBLISHED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New stamps an event of type eventType with the current time. The session id
// is always part of the payload.
func New(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["session_id"] = sessionID
	now := time.Now().UTC()
	payload["occurred_at"] = now.Format(time.RFC3339)

	return BaseEvent{Type: eventType, Data: payload, OccurredAt: now}
}
