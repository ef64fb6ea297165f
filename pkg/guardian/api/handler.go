package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-guardian/pkg/guardian"
)

// Handler serves the content-guardian HTTP API
type Handler struct {
	service guardian.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler. A nil logger uses slog.Default().
func NewHandler(service guardian.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the API routes, to be mounted under /api
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))
	r.Use(RequestSizeLimitMiddleware(maxRequestBytes))

	r.Post("/content/register", h.RegisterContent)
	r.Post("/content/verify", h.VerifyContent)
	r.Get("/content", h.ListContent)
	r.Get("/content/{id}", h.GetContent)
	r.Get("/content/{id}/licenses", h.ListLicenses)
	r.Get("/content/{id}/licenses/{licenseID}", h.GetLicense)
	r.Post("/licenses/create", h.CreateLicense)
	r.Get("/accounts", h.ListAccounts)

	return r
}

// Images arrive as data URIs, so bodies can be large.
const maxRequestBytes = 32 << 20

// RegisterResponse is the response body for a registration
type RegisterResponse struct {
	ContentID       string    `json:"contentId"`
	Timestamp       time.Time `json:"timestamp"`
	TransactionHash string    `json:"transactionHash"`
	ContentHash     string    `json:"contentHash"`
	StorageLocator  string    `json:"ipfsHash"`
	Owner           string    `json:"owner"`
}

// VerifyResponse is the response body for a verification
type VerifyResponse struct {
	MatchPercentage  float64    `json:"matchPercentage"`
	Owner            string     `json:"owner,omitempty"`
	RegistrationDate *time.Time `json:"registrationDate,omitempty"`
	ContentID        string     `json:"contentId,omitempty"`
	Title            string     `json:"title,omitempty"`
	ExactMatch       bool       `json:"exactMatch"`
	Message          string     `json:"message,omitempty"`
}

// LicenseResponse is the response body for a newly issued license
type LicenseResponse struct {
	LicenseID  string    `json:"licenseId"`
	LicenseURL string    `json:"licenseUrl"`
	ExpiryDate time.Time `json:"expiryDate"`
}

// ContentResponse is the public view of a registered record
type ContentResponse struct {
	ID              string                   `json:"id"`
	Title           string                   `json:"title"`
	Type            guardian.ContentType     `json:"type"`
	ContentHash     string                   `json:"contentHash"`
	StorageLocator  string                   `json:"ipfsHash"`
	TransactionHash string                   `json:"transactionHash"`
	Owner           string                   `json:"owner"`
	Timestamp       time.Time                `json:"timestamp"`
	Licenses        []guardian.LicenseRecord `json:"licenses"`
}

// RegisterContent registers a new piece of content
func (h *Handler) RegisterContent(w http.ResponseWriter, r *http.Request) {
	var req guardian.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "content registered", "content_id", record.ID, "type", record.Type)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RegisterResponse{
		ContentID:       record.ID,
		Timestamp:       record.RegisteredAt,
		TransactionHash: record.LedgerTxID,
		ContentHash:     record.Fingerprint,
		StorageLocator:  record.StorageLocator,
		Owner:           record.Owner,
	})
}

// VerifyContent looks for registered content similar to the submitted content
func (h *Handler) VerifyContent(w http.ResponseWriter, r *http.Request) {
	var req guardian.VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Verify(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, newVerifyResponse(result))
}

func newVerifyResponse(result *guardian.MatchResult) VerifyResponse {
	if !result.Matched {
		return VerifyResponse{MatchPercentage: 0, Message: result.Message}
	}
	registered := result.RegistrationDate
	return VerifyResponse{
		MatchPercentage:  result.MatchPercentage,
		Owner:            result.Owner,
		RegistrationDate: &registered,
		ContentID:        result.ContentID,
		Title:            result.Title,
		ExactMatch:       result.ExactMatch,
	}
}

// CreateLicense issues a license on registered content
func (h *Handler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	var req guardian.IssueLicenseRequest
	if !h.decode(w, r, &req) {
		return
	}

	issued, err := h.service.IssueLicense(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, LicenseResponse{
		LicenseID:  issued.License.ID,
		LicenseURL: issued.LicenseURL,
		ExpiryDate: issued.License.ExpiresAt,
	})
}

// GetContent returns a registered record
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.GetContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, newContentResponse(record))
}

// ListContent returns every registered record
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListContent(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := make([]ContentResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, newContentResponse(rec))
	}
	render.JSON(w, r, resp)
}

func newContentResponse(rec *guardian.ContentRecord) ContentResponse {
	licenses := rec.Licenses
	if licenses == nil {
		licenses = []guardian.LicenseRecord{}
	}
	return ContentResponse{
		ID:              rec.ID,
		Title:           rec.Title,
		Type:            rec.Type,
		ContentHash:     rec.Fingerprint,
		StorageLocator:  rec.StorageLocator,
		TransactionHash: rec.LedgerTxID,
		Owner:           rec.Owner,
		Timestamp:       rec.RegisteredAt,
		Licenses:        licenses,
	}
}

// ListLicenses returns the licenses issued on a record
func (h *Handler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.service.ListLicenses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, licenses)
}

// GetLicense returns one license of a record
func (h *Handler) GetLicense(w http.ResponseWriter, r *http.Request) {
	license, err := h.service.GetLicense(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "licenseID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, license)
}

// ListAccounts returns the ledger accounts, default owner first
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]string{"accounts": accounts})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		writeJSONError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
