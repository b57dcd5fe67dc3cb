package contract

import (
	"context"
	"time"

	"nous-core/internal/entity"
)

// TakeStatus tells a result reader what it found.
type TakeStatus int

const (
	TakeNotFound TakeStatus = iota
	// TakePending leaves the session in place; the run is still going.
	TakePending
	// TakeReady and TakeFailed both consume the session.
	TakeReady
	TakeFailed
)

// ProgressRepository is the single source of truth for generation progress.
// Every method is atomic.
type ProgressRepository interface {
	Create(id string, initial entity.ProgressRecord, cancel context.CancelFunc) error
	// Update replaces the latest record. It is a no-op returning false when
	// the session no longer exists.
	Update(id string, rec entity.ProgressRecord) bool
	Complete(id string, rec entity.ProgressRecord, result *entity.GenerationResult) bool
	Get(id string) (entity.ProgressRecord, bool)
	Take(id string) (entity.GenerationSession, TakeStatus)
	// Delete removes the session and returns its cancel func.
	Delete(id string) (context.CancelFunc, bool)
	Sweep(maxAge time.Duration) []string
	Count() int
}
