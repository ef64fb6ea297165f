package guardian

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       interface{}
		wantField string
	}{
		{"register ok", RegisterRequest{Title: "t", Type: ContentTypeText, Body: "b"}, ""},
		{"register missing title", RegisterRequest{Type: ContentTypeText, Body: "b"}, "title"},
		{"register missing type", RegisterRequest{Title: "t", Body: "b"}, "type"},
		{"register unknown type", RegisterRequest{Title: "t", Type: "video", Body: "b"}, "type"},
		{"register missing content", RegisterRequest{Title: "t", Type: ContentTypeImage}, "content"},
		{"verify ok", VerifyRequest{Body: "b", Type: ContentTypeImage}, ""},
		{"verify missing content", VerifyRequest{Type: ContentTypeText}, "content"},
		{"verify unknown type", VerifyRequest{Body: "b", Type: "audio"}, "type"},
		{"license ok", IssueLicenseRequest{ContentID: "1", LicenseType: "commercial", Permissions: []string{"print"}}, ""},
		{"license missing content id", IssueLicenseRequest{LicenseType: "commercial", Permissions: []string{"print"}}, "contentId"},
		{"license missing type", IssueLicenseRequest{ContentID: "1", Permissions: []string{"print"}}, "licenseType"},
		{"license no permissions", IssueLicenseRequest{ContentID: "1", LicenseType: "commercial"}, "permissions"},
		{"license empty permission list", IssueLicenseRequest{ContentID: "1", LicenseType: "commercial", Permissions: []string{}}, "permissions"},
		{"license blank permission", IssueLicenseRequest{ContentID: "1", LicenseType: "commercial", Permissions: []string{"print", ""}}, "permissions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.NotEmpty(t, verr.Reason)
		})
	}
}
