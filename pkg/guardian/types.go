package guardian

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentType is the domain type for the kinds of content that can be registered.
type ContentType string

// Content type constants (typed).
const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// IsValid reports whether t is one of the supported content kinds.
func (t ContentType) IsValid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage:
		return true
	}
	return false
}

// DefaultLicenseValidity is how long an issued license stays valid.
const DefaultLicenseValidity = 30 * 24 * time.Hour

// ContentRecord represents one registered submission.
//
// ID, Type and RegisteredAt are set once at registration. Licenses only grows.
type ContentRecord struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Type           ContentType     `json:"type"`
	Body           string          `json:"content"`
	Fingerprint    string          `json:"content_hash"`
	StorageLocator string          `json:"ipfs_hash"`
	LedgerTxID     string          `json:"blockchain_tx"`
	Owner          string          `json:"owner,omitempty"`
	RegisteredAt   time.Time       `json:"timestamp"`
	Licenses       []LicenseRecord `json:"licenses,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *ContentRecord) Clone() *ContentRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Licenses != nil {
		c.Licenses = make([]LicenseRecord, len(r.Licenses))
		for i, l := range r.Licenses {
			c.Licenses[i] = l.clone()
		}
	}
	return &c
}

// UnmarshalJSON accepts timestamps with or without a zone offset.
func (r *ContentRecord) UnmarshalJSON(data []byte) error {
	type plain ContentRecord
	aux := struct {
		*plain
		RegisteredAt looseTime `json:"timestamp"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.RegisteredAt = time.Time(aux.RegisteredAt)
	return nil
}

// LicenseRecord is a usage grant scoped to exactly one ContentRecord.
type LicenseRecord struct {
	ID          string    `json:"id"`
	LicenseType string    `json:"type"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expiry_date"`
}

// UnmarshalJSON accepts timestamps with or without a zone offset.
func (l *LicenseRecord) UnmarshalJSON(data []byte) error {
	type plain LicenseRecord
	aux := struct {
		*plain
		CreatedAt looseTime `json:"created_at"`
		ExpiresAt looseTime `json:"expiry_date"`
	}{plain: (*plain)(l)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.CreatedAt = time.Time(aux.CreatedAt)
	l.ExpiresAt = time.Time(aux.ExpiresAt)
	return nil
}

func (l LicenseRecord) clone() LicenseRecord {
	if l.Permissions != nil {
		l.Permissions = append([]string(nil), l.Permissions...)
	}
	return l
}

// AnchorRequest carries what the ledger records for a registration.
type AnchorRequest struct {
	Fingerprint string
	Locator     string
	Title       string
	Type        ContentType
	From        string
}

// MatchResult is the outcome of a verification scan.
//
// Matched is false when no candidate of the query type could be scored; in that
// case MatchPercentage is 0 and Message explains why.
type MatchResult struct {
	Matched          bool      `json:"matched"`
	MatchPercentage  float64   `json:"match_percentage"`
	ContentID        string    `json:"content_id,omitempty"`
	Title            string    `json:"title,omitempty"`
	Owner            string    `json:"owner,omitempty"`
	RegistrationDate time.Time `json:"registration_date,omitempty"`
	ExactMatch       bool      `json:"exact_match"`
	Candidates       int       `json:"candidates"`
	Skipped          int       `json:"skipped"`
	Message          string    `json:"message,omitempty"`
}

// NoMatchMessage is reported when there was nothing comparable in the registry.
const NoMatchMessage = "No matching content found"

// IssuedLicense is returned by license issuance.
type IssuedLicense struct {
	ContentID  string        `json:"content_id"`
	License    LicenseRecord `json:"license"`
	LicenseURL string        `json:"license_url"`
}

// Zone-less timestamps are read as UTC.
var looseTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// looseTime decodes RFC 3339 timestamps as well as ISO 8601 ones without an
// offset, as written by snapshot files from older deployments.
type looseTime time.Time

func (t *looseTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = looseTime{}
		return nil
	}
	for _, layout := range looseTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = looseTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
