package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nous-core/internal/entity"
	"nous-core/internal/repository/contract"
)

type progressEntry struct {
	session entity.GenerationSession
	cancel  context.CancelFunc
}

type ProgressRepository struct {
	mu      sync.RWMutex
	entries map[string]*progressEntry
}

var _ contract.ProgressRepository = (*ProgressRepository)(nil)

func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{entries: make(map[string]*progressEntry)}
}

func (r *ProgressRepository) Create(id string, initial entity.ProgressRecord, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("session %s already exists", id)
	}
	r.entries[id] = &progressEntry{
		session: entity.GenerationSession{ID: id, Latest: initial, CreatedAt: time.Now()},
		cancel:  cancel,
	}
	return nil
}

func (r *ProgressRepository) Update(id string, rec entity.ProgressRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	// Progress only moves forward until a terminal stage resets it.
	if !rec.Stage.Terminal() && rec.Progress < e.session.Latest.Progress {
		rec.Progress = e.session.Latest.Progress
	}
	e.session.Latest = rec
	return true
}

func (r *ProgressRepository) Complete(id string, rec entity.ProgressRecord, result *entity.GenerationResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.session.Latest = rec
	e.session.Result = result
	return true
}

func (r *ProgressRepository) Get(id string) (entity.ProgressRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return entity.ProgressRecord{}, false
	}
	return e.session.Latest, true
}

func (r *ProgressRepository) Take(id string) (entity.GenerationSession, contract.TakeStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return entity.GenerationSession{}, contract.TakeNotFound
	}

	switch {
	case e.session.Latest.Stage == entity.StageError:
		delete(r.entries, id)
		return e.session, contract.TakeFailed
	case e.session.Latest.Completed() && e.session.Result != nil:
		delete(r.entries, id)
		return e.session, contract.TakeReady
	}
	return e.session, contract.TakePending
}

func (r *ProgressRepository) Delete(id string) (context.CancelFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	return e.cancel, true
}

// Sweep evicts sessions created more than maxAge ago and cancels their runs.
func (r *ProgressRepository) Sweep(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var evicted []string
	var cancels []context.CancelFunc
	for id, e := range r.entries {
		if e.session.CreatedAt.Before(cutoff) {
			evicted = append(evicted, id)
			if e.cancel != nil {
				cancels = append(cancels, e.cancel)
			}
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return evicted
}

func (r *ProgressRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
