package memory

import (
	"context"
	"sync"

	"github.com/tendant/content-guardian/pkg/guardian"
)

// Repository implements guardian.PersistenceStore in memory. Snapshots are
// deep-copied on the way in and out.
type Repository struct {
	mu       sync.RWMutex
	snapshot map[string]*guardian.ContentRecord
	saves    int
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{snapshot: make(map[string]*guardian.ContentRecord)}
}

func (r *Repository) Load(ctx context.Context) (map[string]*guardian.ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copySnapshot(r.snapshot), nil
}

func (r *Repository) Save(ctx context.Context, records map[string]*guardian.ContentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = copySnapshot(records)
	r.saves++
	return nil
}

// Saves returns how many snapshots have been written
func (r *Repository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func copySnapshot(in map[string]*guardian.ContentRecord) map[string]*guardian.ContentRecord {
	out := make(map[string]*guardian.ContentRecord, len(in))
	for id, rec := range in {
		out[id] = rec.Clone()
	}
	return out
}
