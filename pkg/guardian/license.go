package guardian

import (
	"context"
	"fmt"
	"time"
)

// LicenseIssuer creates licenses and attaches them to registered content.
// License ids are assigned by the registry, so any number of issuers may
// share one registry.
type LicenseIssuer struct {
	registry *Registry
	validity time.Duration
	now      func() time.Time
}

// LicenseOption represents a functional option for configuring the issuer
type LicenseOption func(*LicenseIssuer)

// WithLicenseValidity overrides DefaultLicenseValidity
func WithLicenseValidity(d time.Duration) LicenseOption {
	return func(l *LicenseIssuer) {
		if d > 0 {
			l.validity = d
		}
	}
}

// WithLicenseClock overrides the time source used for CreatedAt
func WithLicenseClock(now func() time.Time) LicenseOption {
	return func(l *LicenseIssuer) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLicenseIssuer creates an issuer bound to registry.
func NewLicenseIssuer(registry *Registry, opts ...LicenseOption) *LicenseIssuer {
	l := &LicenseIssuer{
		registry: registry,
		validity: DefaultLicenseValidity,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Issue appends a new license to the content identified by req.ContentID.
func (l *LicenseIssuer) Issue(ctx context.Context, req IssueLicenseRequest) (*IssuedLicense, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	createdAt := l.now()
	license, err := l.registry.AppendLicense(ctx, req.ContentID, LicenseRecord{
		LicenseType: req.LicenseType,
		Permissions: append([]string(nil), req.Permissions...),
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(l.validity),
	})
	if err != nil {
		return nil, err
	}
	licensesIssuedTotal.Inc()

	return &IssuedLicense{
		ContentID:  req.ContentID,
		License:    license,
		LicenseURL: LicenseURL(req.ContentID, license.ID),
	}, nil
}

// Get returns one license of a content record.
func (l *LicenseIssuer) Get(ctx context.Context, contentID, licenseID string) (*LicenseRecord, error) {
	rec, err := l.registry.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	for _, lic := range rec.Licenses {
		if lic.ID == licenseID {
			return &lic, nil
		}
	}
	return nil, &NotFoundError{Kind: "license", ID: licenseID}
}

// List returns every license of a content record in issue order.
func (l *LicenseIssuer) List(ctx context.Context, contentID string) ([]LicenseRecord, error) {
	rec, err := l.registry.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if rec.Licenses == nil {
		return []LicenseRecord{}, nil
	}
	return rec.Licenses, nil
}

// LicenseID formats the id of the license at 1-based position n.
func LicenseID(n int) string {
	return fmt.Sprintf("LIC-%d", n)
}

// LicenseURL is the path a license can be fetched from.
func LicenseURL(contentID, licenseID string) string {
	return fmt.Sprintf("/api/content/%s/licenses/%s", contentID, licenseID)
}
