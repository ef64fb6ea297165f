package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tendant/content-guardian/pkg/guardian"
)

// Repository implements guardian.PersistenceStore as a single JSON document
// mapping record id to record.
type Repository struct {
	mu   sync.Mutex
	path string
}

// New creates a file repository writing to path. The parent directory is
// created when missing.
func New(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Repository{path: path}, nil
}

// Path returns the snapshot file location
func (r *Repository) Path() string {
	return r.path
}

// Load reads the snapshot. A missing file is initialised to an empty snapshot.
func (r *Repository) Load(ctx context.Context) (map[string]*guardian.ContentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		records := map[string]*guardian.ContentRecord{}
		if err := r.writeLocked(records); err != nil {
			return nil, err
		}
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	records := map[string]*guardian.ContentRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	return records, nil
}

// Save replaces the snapshot file atomically.
func (r *Repository) Save(ctx context.Context, records map[string]*guardian.ContentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(records)
}

func (r *Repository) writeLocked(records map[string]*guardian.ContentRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}
