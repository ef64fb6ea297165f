package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Registry is the system of record for content. It assigns ids, drives the
// storage and ledger collaborators during registration and persists a full
// snapshot after every mutation.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*ContentRecord
	seq     int64

	store   PersistenceStore
	storage StorageClient
	ledger  Ledger
	logger  *slog.Logger
	now     func() time.Time
}

// RegistryOption represents a functional option for configuring the registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used by the registry
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source, mostly for tests
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry loads the persisted snapshot and returns a ready registry.
func NewRegistry(ctx context.Context, store PersistenceStore, storage StorageClient, ledger Ledger, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("persistence store is required")
	}
	if storage == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}

	r := &Registry{
		records: make(map[string]*ContentRecord),
		store:   store,
		storage: storage,
		ledger:  ledger,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		return nil, &DependencyError{Dependency: DependencyPersistence, Op: "load", Err: err}
	}
	for id, rec := range loaded {
		if rec == nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = id
		}
		r.records[rec.ID] = rec.Clone()
		if n, err := strconv.ParseInt(rec.ID, 10, 64); err == nil && n > r.seq {
			r.seq = n
		}
	}
	r.logger.Debug("registry loaded", "records", len(r.records), "next_id", r.seq+1)

	return r, nil
}

// storagePayload is the document uploaded to content storage for each registration.
type storagePayload struct {
	Content   string      `json:"content"`
	Title     string      `json:"title"`
	Type      ContentType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// Register validates req, uploads it to storage, anchors it on the ledger and
// persists the new record. Nothing is persisted if any collaborator fails.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*ContentRecord, error) {
	if err := validateStruct(req); err != nil {
		registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeInvalid).Inc()
		return nil, err
	}

	registeredAt := r.now()
	fingerprint := Fingerprint(req.Body)

	payload, err := json.Marshal(storagePayload{
		Content:   req.Body,
		Title:     req.Title,
		Type:      req.Type,
		Timestamp: registeredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode storage payload: %w", err)
	}

	locator, err := r.storage.Store(ctx, payload)
	if err != nil {
		registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeFailed).Inc()
		return nil, &DependencyError{Dependency: DependencyStorage, Op: "store", Err: err}
	}

	owner := req.Owner
	if owner == "" {
		owner, err = r.defaultAccount(ctx)
		if err != nil {
			registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeFailed).Inc()
			return nil, &DependencyError{Dependency: DependencyLedger, Op: "list_accounts", Err: err}
		}
	}

	txID, err := r.ledger.Anchor(ctx, AnchorRequest{
		Fingerprint: fingerprint,
		Locator:     locator,
		Title:       req.Title,
		Type:        req.Type,
		From:        owner,
	})
	if err != nil {
		registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeFailed).Inc()
		return nil, &DependencyError{Dependency: DependencyLedger, Op: "anchor", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	record := &ContentRecord{
		ID:             strconv.FormatInt(r.seq, 10),
		Title:          req.Title,
		Type:           req.Type,
		Body:           req.Body,
		Fingerprint:    fingerprint,
		StorageLocator: locator,
		LedgerTxID:     txID,
		Owner:          owner,
		RegisteredAt:   registeredAt,
	}
	r.records[record.ID] = record

	if err := r.saveLocked(ctx); err != nil {
		delete(r.records, record.ID)
		r.seq--
		registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeFailed).Inc()
		return nil, &DependencyError{Dependency: DependencyPersistence, Op: "save", Err: err}
	}

	registrationsTotal.WithLabelValues(typeLabel(req.Type), outcomeSuccess).Inc()
	return record.Clone(), nil
}

// Get returns a copy of the record with the given id.
func (r *Registry) Get(ctx context.Context, id string) (*ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

// All returns copies of every record ordered by registration sequence.
func (r *Registry) All(ctx context.Context) ([]*ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ContentRecord, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.Clone())
	}
	sortRecords(result)
	return result, nil
}

// FindByFingerprint returns every record whose body hashes to fingerprint.
func (r *Registry) FindByFingerprint(ctx context.Context, fingerprint string) ([]*ContentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*ContentRecord
	for _, rec := range r.records {
		if rec.Fingerprint == fingerprint {
			result = append(result, rec.Clone())
		}
	}
	sortRecords(result)
	return result, nil
}

// Count returns the number of registered records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// AppendLicense assigns the next positional license id, appends license to
// the record's license list and persists. The stored license is returned.
func (r *Registry) AppendLicense(ctx context.Context, id string, license LicenseRecord) (LicenseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return LicenseRecord{}, notFound(id)
	}

	license = license.clone()
	license.ID = LicenseID(len(rec.Licenses) + 1)

	prev := rec.Licenses
	rec.Licenses = append(append(make([]LicenseRecord, 0, len(prev)+1), prev...), license)

	if err := r.saveLocked(ctx); err != nil {
		rec.Licenses = prev
		return LicenseRecord{}, &DependencyError{Dependency: DependencyPersistence, Op: "save", Err: err}
	}
	return license.clone(), nil
}

// DefaultOwner returns the account registrations are attributed to when the
// submitter does not name one.
func (r *Registry) DefaultOwner(ctx context.Context) (string, error) {
	return r.defaultAccount(ctx)
}

func (r *Registry) defaultAccount(ctx context.Context) (string, error) {
	accounts, err := r.ledger.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", ErrNoAccounts
	}
	return accounts[0], nil
}

// saveLocked writes the full snapshot. Callers must hold r.mu for writing.
func (r *Registry) saveLocked(ctx context.Context) error {
	snapshot := make(map[string]*ContentRecord, len(r.records))
	for id, rec := range r.records {
		snapshot[id] = rec.Clone()
	}
	return r.store.Save(ctx, snapshot)
}

func sortRecords(records []*ContentRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, errA := strconv.ParseInt(records[i].ID, 10, 64)
		b, errB := strconv.ParseInt(records[j].ID, 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		if errA == nil {
			return true
		}
		if errB == nil {
			return false
		}
		return records[i].ID < records[j].ID
	})
}
