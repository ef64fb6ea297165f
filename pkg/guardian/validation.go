package guardian

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest contains parameters for registering content
type RegisterRequest struct {
	Title string      `json:"title" validate:"required"`
	Type  ContentType `json:"type" validate:"required,oneof=text image"`
	Body  string      `json:"content" validate:"required"`
	// Owner is optional; the ledger's default account is used when empty
	Owner string `json:"owner,omitempty"`
}

// VerifyRequest contains parameters for a similarity check
type VerifyRequest struct {
	Body string      `json:"content" validate:"required"`
	Type ContentType `json:"type" validate:"required,oneof=text image"`
}

// IssueLicenseRequest contains parameters for issuing a license
type IssueLicenseRequest struct {
	ContentID   string   `json:"contentId" validate:"required"`
	LicenseType string   `json:"licenseType" validate:"required"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

// validateStruct runs the struct tags of req and converts the first failure
// into a *ValidationError.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	return formatFieldError(verrs[0])
}

func formatFieldError(e validator.FieldError) *ValidationError {
	field := fieldName(e)
	switch e.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "oneof":
		return &ValidationError{Field: field, Reason: "must be one of: " + e.Param()}
	case "min":
		return &ValidationError{Field: field, Reason: "must have at least " + e.Param() + " entries"}
	default:
		return &ValidationError{Field: field, Reason: "is invalid"}
	}
}

// fieldName maps a struct field to the name callers send on the wire.
func fieldName(e validator.FieldError) string {
	switch e.StructField() {
	case "Body":
		return "content"
	case "ContentID":
		return "contentId"
	case "LicenseType":
		return "licenseType"
	}
	name := e.Field()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
