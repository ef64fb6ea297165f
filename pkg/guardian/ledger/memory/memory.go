package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
)

const backendName = "memory"

// Ledger is an in-memory implementation of the guardian.Ledger interface
type Ledger struct {
	mu       sync.RWMutex
	entries  []ledger.Entry
	accounts []string
	now      func() time.Time
}

// New creates an in-memory ledger. With no accounts a single deterministic
// default account is used.
func New(accounts ...string) *Ledger {
	if len(accounts) == 0 {
		accounts = []string{ledger.DefaultAccount()}
	}
	return &Ledger{
		accounts: append([]string(nil), accounts...),
		now:      time.Now,
	}
}

// Anchor appends an entry chained to the previous one and returns its id
func (l *Ledger) Anchor(ctx context.Context, req guardian.AnchorRequest) (string, error) {
	if req.Fingerprint == "" || req.Locator == "" {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: errors.New("fingerprint and locator are required")}
	}
	if err := ctx.Err(); err != nil {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ledger.GenesisTxID
	if n := len(l.entries); n > 0 {
		prev = l.entries[n-1].TxID
	}
	entry := ledger.NewEntry(int64(len(l.entries)+1), prev, req, l.now())
	l.entries = append(l.entries, entry)
	return entry.TxID, nil
}

// ListAccounts returns the configured accounts, default first
func (l *Ledger) ListAccounts(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.accounts...), nil
}

// Entries returns a copy of the chain in sequence order
func (l *Ledger) Entries(ctx context.Context) ([]ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ledger.Entry(nil), l.entries...), nil
}

// Lookup returns the entry with the given transaction id
func (l *Ledger) Lookup(ctx context.Context, txID string) (*ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.TxID == txID {
			entry := e
			return &entry, nil
		}
	}
	return nil, &guardian.NotFoundError{Kind: "transaction", ID: txID}
}
