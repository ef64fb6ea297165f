package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
)

// runTest connects to GUARDIAN_TEST_DATABASE_URL, resets the ledger table and
// runs testFunc. The test is skipped when no database is configured.
func runTest(t *testing.T, testFunc func(t *testing.T, pool *pgxpool.Pool)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("GUARDIAN_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("GUARDIAN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	defer pool.Close()
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	require.NoError(t, New(pool).EnsureSchema(ctx))
	_, err = pool.Exec(ctx, "TRUNCATE ledger_entries")
	require.NoError(t, err)

	testFunc(t, pool)
}

func TestLedger_AnchorAndVerify(t *testing.T) {
	runTest(t, func(t *testing.T, pool *pgxpool.Pool) {
		ctx := context.Background()
		l := NewWithPool(pool, "alice")

		var ids []string
		for _, title := range []string{"one", "two", "three"} {
			id, err := l.Anchor(ctx, guardian.AnchorRequest{
				Fingerprint: guardian.Fingerprint(title),
				Locator:     "bafk-" + title,
				Title:       title,
				Type:        guardian.ContentTypeText,
				From:        "alice",
			})
			require.NoError(t, err)
			ids = append(ids, id)
		}

		entries, err := l.Entries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.Equal(t, ids[i], e.TxID)
		}
		assert.Equal(t, ledger.GenesisTxID, entries[0].PrevTxID)
		assert.NoError(t, l.Verify(ctx))

		_, err = pool.Exec(ctx, "UPDATE ledger_entries SET title = 'forged' WHERE seq = 2")
		require.NoError(t, err)
		assert.Error(t, l.Verify(ctx))
	})
}

func TestLedger_AnchorValidation(t *testing.T) {
	runTest(t, func(t *testing.T, pool *pgxpool.Pool) {
		_, err := NewWithPool(pool).Anchor(context.Background(), guardian.AnchorRequest{})
		assert.ErrorIs(t, err, guardian.ErrLedger)
	})
}

func TestLedger_DefaultAccount(t *testing.T) {
	accounts, err := New(nil).ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{ledger.DefaultAccount()}, accounts)
}
