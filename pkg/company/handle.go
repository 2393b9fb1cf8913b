package company

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-support/pkg/errors"
)

// Handler handles HTTP requests for the tenant directory
type Handler struct {
	service *Service
}

// NewHandler creates a new tenant directory handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the tenant directory routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListCompanies)
	r.Post("/", h.CreateCompany)
	r.Get("/{id}", h.GetCompany)
	r.Delete("/{id}", h.DeleteCompany)
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var structuredErr *errors.Error
	if !stderrors.As(err, &structuredErr) {
		slog.Error("unstructured error in company handler", "error", err)
		structuredErr = errors.Internal("internal server error")
	}
	if structuredErr.Code == errors.ErrCodeInternal {
		slog.Error("company handler internal error", "error", err)
	}
	render.Status(r, structuredErr.HTTPStatusCode())
	render.JSON(w, r, ErrorResponse{
		Code:    string(structuredErr.Code),
		Message: structuredErr.Message,
		Details: structuredErr.Details,
	})
}

// ListCompanies handles GET /companies
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	companies, total, err := h.service.ListCompanies(r.Context(), ListCompaniesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"companies": companies,
		"pagination": map[string]int{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// CreateCompany handles POST /companies
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var params CreateCompanyParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondError(w, r, errors.InvalidInput("body", "invalid JSON"))
		return
	}

	company, err := h.service.CreateCompany(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("company created", "companyId", company.ID, "name", company.Name)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, company)
}

// GetCompany handles GET /companies/{id}
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, company)
}

// DeleteCompany handles DELETE /companies/{id}
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("company deleted", "companyId", id)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{
		"message": "Company deleted successfully",
	})
}
