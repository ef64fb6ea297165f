package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-guardian/pkg/guardian"
	"github.com/tendant/content-guardian/pkg/guardian/ledger"
)

const backendName = "postgres"

// anchorLockKey serialises appends across every process sharing the table.
const anchorLockKey int64 = 0x6775617264

// Schema creates the ledger table.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq          BIGINT PRIMARY KEY,
	tx_id        TEXT NOT NULL UNIQUE,
	prev_tx_id   TEXT NOT NULL,
	fingerprint  TEXT NOT NULL,
	locator      TEXT NOT NULL,
	title        TEXT NOT NULL,
	content_type TEXT NOT NULL,
	from_account TEXT NOT NULL,
	anchored_at  TIMESTAMPTZ NOT NULL
)`

// DB is the subset of pgxpool.Pool the ledger needs.
type DB interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
}

// Ledger implements guardian.Ledger on a PostgreSQL table
type Ledger struct {
	db       DB
	accounts []string
	now      func() time.Time
}

// New creates a postgres ledger. With no accounts a single deterministic
// default account is used.
func New(db DB, accounts ...string) *Ledger {
	if len(accounts) == 0 {
		accounts = []string{ledger.DefaultAccount()}
	}
	return &Ledger{
		db:       db,
		accounts: append([]string(nil), accounts...),
		now:      time.Now,
	}
}

// NewWithPool creates a postgres ledger backed by a connection pool
func NewWithPool(pool *pgxpool.Pool, accounts ...string) *Ledger {
	return New(pool, accounts...)
}

// EnsureSchema creates the ledger table if it does not exist
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// Anchor appends a chained entry inside a transaction holding an advisory lock
func (l *Ledger) Anchor(ctx context.Context, req guardian.AnchorRequest) (string, error) {
	if req.Fingerprint == "" || req.Locator == "" {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: errors.New("fingerprint and locator are required")}
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, anchorLockKey); err != nil {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: fmt.Errorf("failed to lock ledger: %w", err)}
	}

	var seq int64
	prev := ledger.GenesisTxID
	err = tx.QueryRow(ctx, `SELECT seq, tx_id FROM ledger_entries ORDER BY seq DESC LIMIT 1`).Scan(&seq, &prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: fmt.Errorf("failed to read chain head: %w", err)}
	}

	entry := ledger.NewEntry(seq+1, prev, req, l.now())
	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (
			seq, tx_id, prev_tx_id, fingerprint, locator, title,
			content_type, from_account, anchored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Seq, entry.TxID, entry.PrevTxID, entry.Fingerprint, entry.Locator,
		entry.Title, string(entry.Type), entry.From, entry.AnchoredAt)
	if err != nil {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: handlePostgresError(err)}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", &guardian.LedgerError{Backend: backendName, Op: "anchor", Err: fmt.Errorf("failed to commit: %w", err)}
	}
	return entry.TxID, nil
}

// ListAccounts returns the configured accounts, default first
func (l *Ledger) ListAccounts(ctx context.Context) ([]string, error) {
	return append([]string(nil), l.accounts...), nil
}

// Entries returns the whole chain in sequence order
func (l *Ledger) Entries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := l.db.Query(ctx, `
		SELECT seq, tx_id, prev_tx_id, fingerprint, locator, title,
		       content_type, from_account, anchored_at
		FROM ledger_entries ORDER BY seq`)
	if err != nil {
		return nil, &guardian.LedgerError{Backend: backendName, Op: "entries", Err: handlePostgresError(err)}
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var contentType string
		if err := rows.Scan(&e.Seq, &e.TxID, &e.PrevTxID, &e.Fingerprint, &e.Locator,
			&e.Title, &contentType, &e.From, &e.AnchoredAt); err != nil {
			return nil, &guardian.LedgerError{Backend: backendName, Op: "entries", Err: err}
		}
		e.Type = guardian.ContentType(contentType)
		e.AnchoredAt = e.AnchoredAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &guardian.LedgerError{Backend: backendName, Op: "entries", Err: err}
	}
	return entries, nil
}

// Verify recomputes the chain stored in the table
func (l *Ledger) Verify(ctx context.Context) error {
	entries, err := l.Entries(ctx)
	if err != nil {
		return err
	}
	return ledger.VerifyChain(entries)
}

func handlePostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("ledger entry already exists")
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - run EnsureSchema")
		default:
			return fmt.Errorf("database error: %s (code: %s)", pgErr.Message, pgErr.Code)
		}
	}
	return err
}
