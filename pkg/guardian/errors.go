package guardian

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates caller-supplied input was missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrDependency indicates a collaborator (storage, ledger, persistence) failed
	ErrDependency = errors.New("dependency failed")

	// ErrStorage indicates the content storage collaborator failed
	ErrStorage = errors.New("storage failed")

	// ErrLedger indicates the ledger collaborator failed
	ErrLedger = errors.New("ledger failed")

	// ErrPersistence indicates the record snapshot could not be loaded or saved
	ErrPersistence = errors.New("persistence failed")

	// ErrNoAccounts indicates the ledger has no account to attribute ownership to
	ErrNoAccounts = errors.New("ledger has no accounts")
)

// Dependency names used in DependencyError.
const (
	DependencyStorage     = "storage"
	DependencyLedger      = "ledger"
	DependencyPersistence = "persistence"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a missing content record or license.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DependencyError represents a failed collaborator call during an operation
type DependencyError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s operation %s failed: %v", e.Dependency, e.Op, e.Err)
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to content storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LedgerError represents an error related to ledger operations
type LedgerError struct {
	Backend string
	Op      string
	Err     error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger operation %s failed on backend %s: %v", e.Op, e.Backend, e.Err)
}

func (e *LedgerError) Is(target error) bool {
	return target == ErrLedger
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func notFound(id string) error {
	return &NotFoundError{Kind: "content", ID: id}
}
