package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// Schema creates the snapshot table.
const Schema = `
CREATE TABLE IF NOT EXISTS content_records (
	id     TEXT PRIMARY KEY,
	seq    BIGINT,
	record JSONB NOT NULL
)`

// DB is an interface that allows us to use either a pool or a single connection
type DB interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements guardian.PersistenceStore using PostgreSQL. Every
// Save replaces the table contents inside one transaction.
type Repository struct {
	db DB
}

// New creates a new PostgreSQL repository
func New(db DB) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// EnsureSchema creates the snapshot table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context) (map[string]*guardian.ContentRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, record FROM content_records ORDER BY seq, id`)
	if err != nil {
		return nil, r.handlePostgresError("load", err)
	}
	defer rows.Close()

	records := make(map[string]*guardian.ContentRecord)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, r.handlePostgresError("load", err)
		}
		var rec guardian.ContentRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
		}
		records[id] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("load", err)
	}
	return records, nil
}

func (r *Repository) Save(ctx context.Context, records map[string]*guardian.ContentRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("save", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM content_records`); err != nil {
		return r.handlePostgresError("save", err)
	}

	batch := &pgx.Batch{}
	for id, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", id, err)
		}
		var seq *int64
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			seq = &n
		}
		batch.Queue(`INSERT INTO content_records (id, seq, record) VALUES ($1, $2, $3)`, id, seq, raw)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return r.handlePostgresError("save", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("save", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate record in %s", operation)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - run EnsureSchema")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
