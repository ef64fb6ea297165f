package guardian_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
)

func TestRegistry_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.register(t, "Fox", guardian.ContentTypeText, "The quick brown fox")

	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, "Fox", rec.Title)
	assert.Equal(t, guardian.ContentTypeText, rec.Type)
	assert.Equal(t, guardian.Fingerprint("The quick brown fox"), rec.Fingerprint)
	assert.NotEmpty(t, rec.StorageLocator)
	assert.NotEmpty(t, rec.LedgerTxID)
	assert.Equal(t, ledger.DefaultAccount(), rec.Owner)
	assert.Equal(t, fixedNow, rec.RegisteredAt)
	assert.Empty(t, rec.Licenses)

	payload, err := f.storage.Fetch(ctx, rec.StorageLocator)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "The quick brown fox")

	entry, err := f.ledger.Lookup(ctx, rec.LedgerTxID)
	require.NoError(t, err)
	assert.Equal(t, rec.Fingerprint, entry.Fingerprint)
	assert.Equal(t, rec.StorageLocator, entry.Locator)

	assert.Equal(t, 1, f.store.Saves())
	persisted, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, persisted, "1")
	assert.Equal(t, rec.Fingerprint, persisted["1"].Fingerprint)
}

func TestRegistry_SequentialIDs(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 3; i++ {
		rec := f.register(t, fmt.Sprintf("t%d", i), guardian.ContentTypeText, fmt.Sprintf("body %d", i))
		assert.Equal(t, fmt.Sprint(i), rec.ID)
	}
	assert.Equal(t, 3, f.registry.Count())

	all, err := f.registry.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, rec := range all {
		assert.Equal(t, fmt.Sprint(i+1), rec.ID)
	}
}

func TestRegistry_ExplicitOwner(t *testing.T) {
	f := newFixture(t, "0xaaa", "0xbbb")

	rec, err := f.registry.Register(context.Background(), guardian.RegisterRequest{
		Title: "t", Type: guardian.ContentTypeText, Body: "b", Owner: "0xbbb",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xbbb", rec.Owner)

	rec = f.register(t, "t2", guardian.ContentTypeText, "b2")
	assert.Equal(t, "0xaaa", rec.Owner)
}

func TestRegistry_DuplicateBodiesGetDistinctIDs(t *testing.T) {
	f := newFixture(t)

	a := f.register(t, "a", guardian.ContentTypeText, "same body")
	b := f.register(t, "b", guardian.ContentTypeText, "same body")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	found, err := f.registry.FindByFingerprint(context.Background(), a.Fingerprint)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, a.ID, found[0].ID)
	assert.Equal(t, b.ID, found[1].ID)
}

func TestRegistry_ValidationFailsBeforeCollaborators(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Register(context.Background(), guardian.RegisterRequest{Type: guardian.ContentTypeText, Body: "b"})
	assert.ErrorIs(t, err, guardian.ErrValidation)

	_, err = f.registry.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: "video", Body: "b"})
	assert.ErrorIs(t, err, guardian.ErrValidation)

	assert.Zero(t, f.storage.stores.Load())
	assert.Zero(t, f.store.Saves())
	assert.Zero(t, f.registry.Count())
}

func TestRegistry_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.fail.Store(true)

	_, err := f.registry.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: guardian.ContentTypeText, Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, guardian.ErrDependency)
	assert.ErrorIs(t, err, guardian.ErrStorage)

	entries, err := f.ledger.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, f.registry.Count())
	assert.Zero(t, f.store.Saves())
}

func TestRegistry_LedgerFailure(t *testing.T) {
	f := newFixture(t)
	f.ledger.failAnchor.Store(true)

	_, err := f.registry.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: guardian.ContentTypeText, Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, guardian.ErrLedger)
	assert.Zero(t, f.registry.Count())
	assert.Zero(t, f.store.Saves())

	f.ledger.failAnchor.Store(false)
	rec := f.register(t, "t", guardian.ContentTypeText, "b")
	assert.Equal(t, "1", rec.ID)
}

func TestRegistry_NoAccounts(t *testing.T) {
	f := newFixture(t)
	f.ledger.failAccounts.Store(true)

	_, err := f.registry.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: guardian.ContentTypeText, Body: "b"})
	assert.ErrorIs(t, err, guardian.ErrLedger)
	assert.Zero(t, f.registry.Count())
}

func TestRegistry_SaveFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.register(t, "first", guardian.ContentTypeText, "one")

	f.store.failSave.Store(true)
	_, err := f.registry.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: guardian.ContentTypeText, Body: "two"})
	require.Error(t, err)
	assert.ErrorIs(t, err, guardian.ErrDependency)

	var depErr *guardian.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, guardian.DependencyPersistence, depErr.Dependency)
	assert.Equal(t, 1, f.registry.Count())

	f.store.failSave.Store(false)
	rec := f.register(t, "second", guardian.ContentTypeText, "two")
	assert.Equal(t, "2", rec.ID)
}

func TestRegistry_ReloadContinuesIDs(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "a", guardian.ContentTypeText, "alpha")
	f.register(t, "b", guardian.ContentTypeText, "beta")

	reopened := f.open(t)
	assert.Equal(t, 2, reopened.Count())

	got, err := reopened.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, got.Fingerprint)
	assert.Equal(t, first.LedgerTxID, got.LedgerTxID)

	rec, err := reopened.Register(context.Background(), guardian.RegisterRequest{Title: "c", Type: guardian.ContentTypeText, Body: "gamma"})
	require.NoError(t, err)
	assert.Equal(t, "3", rec.ID)
}

func TestRegistry_LoadFailure(t *testing.T) {
	store := newFlakyStore()
	store.failLoad.Store(true)

	_, err := guardian.NewRegistry(context.Background(), store, newCountingStorage(), newFlakyLedger())
	require.Error(t, err)
	assert.ErrorIs(t, err, guardian.ErrDependency)
}

func TestRegistry_RequiresCollaborators(t *testing.T) {
	ctx := context.Background()

	_, err := guardian.NewRegistry(ctx, nil, newCountingStorage(), newFlakyLedger())
	assert.Error(t, err)
	_, err = guardian.NewRegistry(ctx, newFlakyStore(), nil, newFlakyLedger())
	assert.Error(t, err)
	_, err = guardian.NewRegistry(ctx, newFlakyStore(), newCountingStorage(), nil)
	assert.Error(t, err)
}

func TestRegistry_GetNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.registry.Get(context.Background(), "42")
	assert.ErrorIs(t, err, guardian.ErrNotFound)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	f := newFixture(t)
	rec := f.register(t, "a", guardian.ContentTypeText, "alpha")

	rec.Title = "mutated"
	got, err := f.registry.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := f.registry.Register(context.Background(), guardian.RegisterRequest{
				Title: fmt.Sprintf("t%d", i), Type: guardian.ContentTypeText, Body: fmt.Sprintf("body %d", i),
			})
			if assert.NoError(t, err) {
				ids <- rec.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, f.registry.Count())

	entries, err := f.ledger.Entries(context.Background())
	require.NoError(t, err)
	assert.NoError(t, ledger.VerifyChain(entries))
}

func TestRegistry_TimestampFromWallClock(t *testing.T) {
	r, err := guardian.NewRegistry(context.Background(), newFlakyStore(), newCountingStorage(), newFlakyLedger())
	require.NoError(t, err)

	before := time.Now()
	rec, err := r.Register(context.Background(), guardian.RegisterRequest{Title: "t", Type: guardian.ContentTypeText, Body: "b"})
	require.NoError(t, err)

	assert.False(t, rec.RegisteredAt.Before(before.Truncate(time.Second)))
	assert.False(t, rec.RegisteredAt.After(time.Now()))
}

func TestRegistry_AppendLicenseAssignsIDs(t *testing.T) {
	f := newFixture(t)
	rec := f.register(t, "a", guardian.ContentTypeText, "alpha")
	ctx := context.Background()

	first, err := f.registry.AppendLicense(ctx, rec.ID, guardian.LicenseRecord{ID: "ignored", LicenseType: "x", Permissions: []string{"p"}})
	require.NoError(t, err)
	assert.Equal(t, "LIC-1", first.ID)

	second, err := f.registry.AppendLicense(ctx, rec.ID, guardian.LicenseRecord{LicenseType: "y"})
	require.NoError(t, err)
	assert.Equal(t, "LIC-2", second.ID)

	_, err = f.registry.AppendLicense(ctx, "404", guardian.LicenseRecord{})
	assert.ErrorIs(t, err, guardian.ErrNotFound)
}
