package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/storage"
)

const backendName = "fs"

// Backend is a filesystem implementation of the guardian.StorageClient interface.
// Payloads are written to <BaseDir>/<cid[len-2:]>/<cid>.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing payloads
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

// Store writes payload under its content identifier. Existing payloads are left untouched.
func (b *Backend) Store(ctx context.Context, payload []byte) (string, error) {
	locator, err := storage.Locator(payload)
	if err != nil {
		return "", &guardian.StorageError{Backend: backendName, Op: "store", Err: err}
	}

	filePath := b.path(locator)
	if _, err := os.Stat(filePath); err == nil {
		return locator, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", &guardian.StorageError{Backend: backendName, Key: locator, Op: "store", Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	// Write to a temp file first so a crash never leaves a truncated payload behind
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".tmp-*")
	if err != nil {
		return "", &guardian.StorageError{Backend: backendName, Key: locator, Op: "store", Err: fmt.Errorf("failed to create file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", &guardian.StorageError{Backend: backendName, Key: locator, Op: "store", Err: fmt.Errorf("failed to write file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return "", &guardian.StorageError{Backend: backendName, Key: locator, Op: "store", Err: fmt.Errorf("failed to write file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", &guardian.StorageError{Backend: backendName, Key: locator, Op: "store", Err: fmt.Errorf("failed to move file: %w", err)}
	}

	return locator, nil
}

// Fetch reads the payload stored under locator and checks it against the locator
func (b *Backend) Fetch(ctx context.Context, locator string) ([]byte, error) {
	key, err := storage.ParseLocator(locator)
	if err != nil {
		return nil, &guardian.StorageError{Backend: backendName, Key: locator, Op: "fetch", Err: err}
	}

	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, &guardian.StorageError{Backend: backendName, Key: key, Op: "fetch", Err: errors.New("object not found")}
	} else if err != nil {
		return nil, &guardian.StorageError{Backend: backendName, Key: key, Op: "fetch", Err: fmt.Errorf("failed to open file: %w", err)}
	}

	if err := storage.Verify(key, data); err != nil {
		return nil, &guardian.StorageError{Backend: backendName, Key: key, Op: "fetch", Err: err}
	}
	return data, nil
}

func (b *Backend) path(locator string) string {
	shard := locator
	if len(locator) > 2 {
		shard = locator[len(locator)-2:]
	}
	return filepath.Join(b.baseDir, shard, locator)
}
