package guardian_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tendant/content-guardian/pkg/guardian"
	ledgermem "github.com/tendant/content-guardian/pkg/guardian/ledger/memory"
	repomem "github.com/tendant/content-guardian/pkg/guardian/repo/memory"
	"github.com/tendant/content-guardian/pkg/guardian/similarity"
	memorystorage "github.com/tendant/content-guardian/pkg/guardian/storage/memory"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// countingStorage wraps the memory backend and can be told to fail.
type countingStorage struct {
	*memorystorage.Backend
	stores atomic.Int32
	fail   atomic.Bool
}

func newCountingStorage() *countingStorage {
	return &countingStorage{Backend: memorystorage.New()}
}

func (s *countingStorage) Store(ctx context.Context, payload []byte) (string, error) {
	s.stores.Add(1)
	if s.fail.Load() {
		return "", &guardian.StorageError{Backend: "test", Op: "store", Err: errors.New("storage unavailable")}
	}
	return s.Backend.Store(ctx, payload)
}

// flakyLedger wraps the memory ledger and can be told to fail.
type flakyLedger struct {
	*ledgermem.Ledger
	failAnchor   atomic.Bool
	failAccounts atomic.Bool
}

func newFlakyLedger(accounts ...string) *flakyLedger {
	return &flakyLedger{Ledger: ledgermem.New(accounts...)}
}

func (l *flakyLedger) Anchor(ctx context.Context, req guardian.AnchorRequest) (string, error) {
	if l.failAnchor.Load() {
		return "", &guardian.LedgerError{Backend: "test", Op: "anchor", Err: errors.New("node unreachable")}
	}
	return l.Ledger.Anchor(ctx, req)
}

func (l *flakyLedger) ListAccounts(ctx context.Context) ([]string, error) {
	if l.failAccounts.Load() {
		return nil, &guardian.LedgerError{Backend: "test", Op: "list_accounts", Err: errors.New("node unreachable")}
	}
	return l.Ledger.ListAccounts(ctx)
}

// flakyStore wraps the memory repository and can be told to fail.
type flakyStore struct {
	*repomem.Repository
	failSave atomic.Bool
	failLoad atomic.Bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Repository: repomem.New()}
}

func (s *flakyStore) Load(ctx context.Context) (map[string]*guardian.ContentRecord, error) {
	if s.failLoad.Load() {
		return nil, errors.New("disk unreadable")
	}
	return s.Repository.Load(ctx)
}

func (s *flakyStore) Save(ctx context.Context, records map[string]*guardian.ContentRecord) error {
	if s.failSave.Load() {
		return errors.New("disk full")
	}
	return s.Repository.Save(ctx, records)
}

// fixture bundles a registry with its collaborators.
type fixture struct {
	registry *guardian.Registry
	storage  *countingStorage
	ledger   *flakyLedger
	store    *flakyStore
}

func newFixture(t *testing.T, accounts ...string) *fixture {
	t.Helper()
	f := &fixture{
		storage: newCountingStorage(),
		ledger:  newFlakyLedger(accounts...),
		store:   newFlakyStore(),
	}
	f.registry = f.open(t)
	return f
}

// open builds a registry over the fixture's collaborators, reloading the store.
func (f *fixture) open(t *testing.T) *guardian.Registry {
	t.Helper()
	r, err := guardian.NewRegistry(context.Background(), f.store, f.storage, f.ledger, guardian.WithClock(fixedClock))
	require.NoError(t, err)
	return r
}

func (f *fixture) register(t *testing.T, title string, contentType guardian.ContentType, body string) *guardian.ContentRecord {
	t.Helper()
	rec, err := f.registry.Register(context.Background(), guardian.RegisterRequest{
		Title: title,
		Type:  contentType,
		Body:  body,
	})
	require.NoError(t, err)
	return rec
}

// recordingSink collects events.
type recordingSink struct {
	mu         sync.Mutex
	registered []string
	verified   []*guardian.MatchResult
	licenses   []string
	err        error
}

func (s *recordingSink) ContentRegistered(ctx context.Context, record *guardian.ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = append(s.registered, record.ID)
	return s.err
}

func (s *recordingSink) ContentVerified(ctx context.Context, contentType guardian.ContentType, result *guardian.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified = append(s.verified, result)
	return s.err
}

func (s *recordingSink) LicenseIssued(ctx context.Context, contentID string, license *guardian.LicenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.licenses = append(s.licenses, contentID+"/"+license.ID)
	return s.err
}

func solidImage(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return similarity.DataURI("image/png", buf.Bytes())
}
