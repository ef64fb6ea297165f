package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// newTestRepository connects to GUARDIAN_TEST_REDIS_URL using a key unique to
// the test. The test is skipped when no server is configured.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping redis test in short mode")
	}
	url := os.Getenv("GUARDIAN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GUARDIAN_TEST_REDIS_URL not set")
	}

	key := fmt.Sprintf("content-guardian:test:%s:%d", t.Name(), time.Now().UnixNano())
	repo, err := NewFromURL(url, key)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(context.Background()))

	t.Cleanup(func() {
		repo.client.Del(context.Background(), key)
		repo.Close()
	})
	return repo
}

func TestNewFromURL_Invalid(t *testing.T) {
	_, err := NewFromURL("not a url", "")
	assert.Error(t, err)
}

func TestNew_DefaultKey(t *testing.T) {
	repo := New(nil, "")
	assert.Equal(t, DefaultKey, repo.key)
}

func TestRepository_LoadMissingKey(t *testing.T) {
	repo := newTestRepository(t)
	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepository_SaveLoad(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	registered := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := map[string]*guardian.ContentRecord{
		"1": {ID: "1", Title: "one", Type: guardian.ContentTypeText, Body: "first", Owner: "alice", RegisteredAt: registered},
	}
	require.NoError(t, repo.Save(ctx, records))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	require.NoError(t, repo.Save(ctx, map[string]*guardian.ContentRecord{}))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
