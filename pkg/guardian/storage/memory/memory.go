package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/storage"
)

const backendName = "memory"

// Backend is an in-memory implementation of the guardian.StorageClient interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Store keeps a copy of payload under its content identifier
func (b *Backend) Store(ctx context.Context, payload []byte) (string, error) {
	locator, err := storage.Locator(payload)
	if err != nil {
		return "", &guardian.StorageError{Backend: backendName, Op: "store", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[locator] = append([]byte(nil), payload...)
	return locator, nil
}

// Fetch returns a copy of the payload stored under locator
func (b *Backend) Fetch(ctx context.Context, locator string) ([]byte, error) {
	key, err := storage.ParseLocator(locator)
	if err != nil {
		return nil, &guardian.StorageError{Backend: backendName, Key: locator, Op: "fetch", Err: err}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, &guardian.StorageError{Backend: backendName, Key: key, Op: "fetch", Err: errors.New("object not found")}
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of distinct payloads held
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
