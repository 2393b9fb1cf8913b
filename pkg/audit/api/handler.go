package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-support/pkg/audit"
	"github.com/tendant/simple-support/pkg/errors"
)

// Handler handles HTTP requests for the audit log query surface
type Handler struct {
	service *audit.Service
}

// NewHandler creates a new audit log handler
func NewHandler(service *audit.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the audit log routes. Mount this group behind
// the admin role middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListAuditLogs)
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
		slog.Error("unstructured error in audit handler", "error", err)
		structuredErr = errors.Internal("internal server error")
	}
	if structuredErr.Code == errors.ErrCodeInternal {
		slog.Error("audit handler internal error", "error", err)
	}
	render.Status(r, structuredErr.HTTPStatusCode())
	render.JSON(w, r, ErrorResponse{
		Code:    string(structuredErr.Code),
		Message: structuredErr.Message,
		Details: structuredErr.Details,
	})
}

// ListAuditLogs handles GET /audit-logs
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := audit.ListAuditLogsParams{
		UserID:           query.Get("userId"),
		Resource:         query.Get("resource"),
		Action:           query.Get("action"),
		SupportSessionID: query.Get("supportSessionId"),
	}
	params.Limit, _ = strconv.Atoi(query.Get("limit"))
	params.Offset, _ = strconv.Atoi(query.Get("offset"))
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, errors.InvalidInput("from", "must be an RFC 3339 timestamp"))
			return
		}
		params.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, errors.InvalidInput("to", "must be an RFC 3339 timestamp"))
			return
		}
		params.To = to
	}

	entries, total, err := h.service.ListAuditLogs(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"entries": entries,
		"pagination": map[string]interface{}{
			"total":  total,
			"limit":  params.Limit,
			"offset": params.Offset,
		},
	})
}
