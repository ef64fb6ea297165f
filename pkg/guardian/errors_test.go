package guardian

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	storageErr := &StorageError{Backend: "s3", Key: "k", Op: "store", Err: errors.New("timeout")}
	depErr := &DependencyError{Dependency: DependencyStorage, Op: "store", Err: storageErr}

	assert.ErrorIs(t, depErr, ErrDependency)
	assert.ErrorIs(t, depErr, ErrStorage)
	assert.NotErrorIs(t, depErr, ErrLedger)
	assert.NotErrorIs(t, depErr, ErrValidation)

	var se *StorageError
	assert.True(t, errors.As(depErr, &se))
	assert.Equal(t, "s3", se.Backend)

	ledgerErr := &DependencyError{Dependency: DependencyLedger, Op: "anchor", Err: &LedgerError{Backend: "memory", Op: "anchor", Err: errors.New("down")}}
	assert.ErrorIs(t, ledgerErr, ErrLedger)

	assert.ErrorIs(t, notFound("7"), ErrNotFound)
	assert.Equal(t, "content 7 not found", notFound("7").Error())

	assert.ErrorIs(t, &ValidationError{Field: "title", Reason: "is required"}, ErrValidation)
	assert.Equal(t, "validation failed: title is required", (&ValidationError{Field: "title", Reason: "is required"}).Error())
}

func TestContentType(t *testing.T) {
	assert.True(t, ContentTypeText.IsValid())
	assert.True(t, ContentTypeImage.IsValid())
	assert.False(t, ContentType("video").IsValid())
	assert.Equal(t, "unknown", typeLabel("video"))
	assert.Equal(t, "text", typeLabel(ContentTypeText))
}

func TestContentRecord_Clone(t *testing.T) {
	rec := &ContentRecord{
		ID:       "1",
		Licenses: []LicenseRecord{{ID: "LIC-1", Permissions: []string{"print"}}},
	}
	c := rec.Clone()
	c.Licenses[0].Permissions[0] = "changed"
	c.Licenses = append(c.Licenses, LicenseRecord{ID: "LIC-2"})

	assert.Equal(t, "print", rec.Licenses[0].Permissions[0])
	assert.Len(t, rec.Licenses, 1)
	assert.Nil(t, (*ContentRecord)(nil).Clone())
}

func TestContentRecord_UnmarshalTimestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-05-01T09:30:00Z"`, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"offset", `"2026-05-01T11:30:00+02:00"`, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"zoneless with micros", `"2026-05-01T09:30:00.000250"`, time.Date(2026, 5, 1, 9, 30, 0, 250000, time.UTC)},
		{"zoneless", `"2026-05-01T09:30:00"`, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"space separated", `"2026-05-01 09:30:00"`, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec ContentRecord
			err := json.Unmarshal([]byte(`{"id":"7","title":"t","timestamp":`+tt.raw+`}`), &rec)
			require.NoError(t, err)
			assert.Equal(t, "7", rec.ID)
			assert.Equal(t, "t", rec.Title)
			assert.True(t, tt.want.Equal(rec.RegisteredAt), "got %s", rec.RegisteredAt)
		})
	}
}

func TestContentRecord_JSONRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 123456000, time.UTC)
	rec := &ContentRecord{
		ID:           "1",
		RegisteredAt: at,
		Licenses:     []LicenseRecord{{ID: "LIC-1", CreatedAt: at, ExpiresAt: at.Add(DefaultLicenseValidity)}},
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back ContentRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, &back)
}
