package entity

import (
	"time"

	"nous-core/pkg/gateway"
)

// ProgressRecord is the latest state of a generation run, as served to
// polling and streaming clients.
type ProgressRecord struct {
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

func NewProgressRecord(stage Stage, message string) ProgressRecord {
	return ProgressRecord{
		Stage:     stage,
		Progress:  stage.Checkpoint(),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Completed reports whether the run finished successfully.
func (r ProgressRecord) Completed() bool {
	return r.Stage == StageSelection && r.Progress >= 100
}

type GenerationSession struct {
	ID        string
	Latest    ProgressRecord
	Result    *GenerationResult
	CreatedAt time.Time
}

// GenerationResult is what a successful run leaves for the client to pick
// from before finishing the lesson.
type GenerationResult struct {
	Draft  LessonDraft
	Videos []gateway.VideoCandidate
}
