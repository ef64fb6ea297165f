package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// DefaultKey is the key the snapshot is stored under.
const DefaultKey = "content-guardian:contents"

// Repository implements guardian.PersistenceStore as one JSON value in Redis.
type Repository struct {
	client goredis.UniversalClient
	key    string
}

// New creates a Redis repository. An empty key selects DefaultKey.
func New(client goredis.UniversalClient, key string) *Repository {
	if key == "" {
		key = DefaultKey
	}
	return &Repository{client: client, key: key}
}

// NewFromURL connects using a redis:// URL
func NewFromURL(url, key string) (*Repository, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return New(goredis.NewClient(opts), key), nil
}

// Ping checks connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Repository) Load(ctx context.Context) (map[string]*guardian.ContentRecord, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return map[string]*guardian.ContentRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	records := map[string]*guardian.ContentRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return records, nil
}

func (r *Repository) Save(ctx context.Context, records map[string]*guardian.ContentRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close releases the client
func (r *Repository) Close() error {
	return r.client.Close()
}
