package guardian

import (
	"context"
)

// StorageClient stores payloads on a content-addressed network.
type StorageClient interface {
	// Store uploads payload and returns a locator that can retrieve it
	Store(ctx context.Context, payload []byte) (string, error)

	// Fetch returns the payload previously stored under locator
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// Ledger anchors registrations on an append-only, tamper-evident log.
type Ledger interface {
	// Anchor records the fingerprint and locator and returns a transaction id
	Anchor(ctx context.Context, req AnchorRequest) (string, error)

	// ListAccounts returns the accounts known to the ledger, default account first
	ListAccounts(ctx context.Context) ([]string, error)
}

// PersistenceStore holds the durable snapshot of every content record.
type PersistenceStore interface {
	// Load returns all persisted records keyed by id, or an empty map
	Load(ctx context.Context) (map[string]*ContentRecord, error)

	// Save overwrites the persisted snapshot with records
	Save(ctx context.Context, records map[string]*ContentRecord) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	// ContentRegistered is fired after a record is persisted
	ContentRegistered(ctx context.Context, record *ContentRecord) error

	// ContentVerified is fired after a verification scan completes
	ContentVerified(ctx context.Context, contentType ContentType, result *MatchResult) error

	// LicenseIssued is fired after a license is appended to its record
	LicenseIssued(ctx context.Context, contentID string, license *LicenseRecord) error
}

// Scorer computes a similarity in [0, 1] between a query body and a stored record.
// A non-nil error means the candidate cannot be compared and is skipped.
type Scorer interface {
	Score(ctx context.Context, query string, candidate *ContentRecord) (float64, error)
}

// QueryPreparer is implemented by scorers with per-query work, such as
// decoding the query image. The matcher calls Prepare once per scan and
// scores every candidate with the returned Scorer.
type QueryPreparer interface {
	Prepare(ctx context.Context, query string) (Scorer, error)
}
