package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusCode maps a service error to its HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, guardian.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, guardian.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the message exposed to callers. Only typed service
// errors keep their text; anything else is reported generically.
func errorMessage(err error) string {
	var validation *guardian.ValidationError
	var notFound *guardian.NotFoundError
	var dependency *guardian.DependencyError
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &dependency):
		return dependency.Error()
	}
	return "internal error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSONError(w, r, status, errorMessage(err))
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
