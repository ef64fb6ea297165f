package guardian

import (
	"context"
)

// Service defines the main interface for the content-guardian library
type Service interface {
	// Content operations
	Register(ctx context.Context, req RegisterRequest) (*ContentRecord, error)
	GetContent(ctx context.Context, id string) (*ContentRecord, error)
	ListContent(ctx context.Context) ([]*ContentRecord, error)

	// Similarity
	Verify(ctx context.Context, req VerifyRequest) (*MatchResult, error)

	// License operations
	IssueLicense(ctx context.Context, req IssueLicenseRequest) (*IssuedLicense, error)
	GetLicense(ctx context.Context, contentID, licenseID string) (*LicenseRecord, error)
	ListLicenses(ctx context.Context, contentID string) ([]LicenseRecord, error)

	// Ledger accounts
	ListAccounts(ctx context.Context) ([]string, error)
}
