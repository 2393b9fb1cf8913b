package api

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/errors"
	"github.com/tendant/simple-support/pkg/roles"
	"github.com/tendant/simple-support/pkg/support"
)

// Handler handles HTTP requests for support sessions
type Handler struct {
	service *support.SessionService
}

// NewHandler creates a new support session handler
func NewHandler(service *support.SessionService) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the operator-facing support session routes.
// Mount this group behind the authenticated route group; the default
// mount point is /api/support.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/act-as", h.ActAs)
	r.Post("/end-session", h.EndSession)
	r.Post("/switch-target", h.SwitchTarget)
	r.Post("/emergency-exit", h.EmergencyExit)
	r.Get("/current-session", h.CurrentSession)
	r.Get("/my-sessions", h.MySessions)
	r.Get("/sessions/{id}", h.GetSession)
}

// RegisterAdminRoutes registers the admin oversight routes. Mount this
// group behind the admin role middleware.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/active-sessions", h.ActiveSessions)
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
		slog.Error("unstructured error in support handler", "error", err)
		structuredErr = errors.Internal("internal server error")
	}
	if structuredErr.Code == errors.ErrCodeInternal {
		slog.Error("support handler internal error", "error", err)
	}
	render.Status(r, structuredErr.HTTPStatusCode())
	render.JSON(w, r, ErrorResponse{
		Code:    string(structuredErr.Code),
		Message: structuredErr.Message,
		Details: structuredErr.Details,
	})
}

func authUserFromRequest(w http.ResponseWriter, r *http.Request) (*client.AuthUser, bool) {
	authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
	if !ok {
		http.Error(w, "Unable to find user info", http.StatusUnauthorized)
		return nil, false
	}
	return authUser, true
}

func isAdmin(r *http.Request) bool {
	return client.GetAuthContext(r).HasRole(roles.RoleAdmin.String())
}

// ActAsRequest is the payload for starting a support session
type ActAsRequest struct {
	TargetEntityID           string `json:"targetEntityId"`
	Reason                   string `json:"reason"`
	EstimatedDurationMinutes int    `json:"estimatedDurationMinutes,omitempty"`
}

// ActAs handles POST /act-as
func (h *Handler) ActAs(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	var req ActAsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid JSON request body"))
		return
	}

	session, err := h.service.StartSession(r.Context(), support.StartSessionParams{
		OperatorID:               authUser.UserId,
		OperatorEmail:            authUser.ExtraClaims.Email,
		OperatorRole:             authUser.ExtraClaims.Role,
		TargetEntityID:           req.TargetEntityID,
		Reason:                   req.Reason,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"sessionId":      session.ID,
		"supportContext": support.Acting(session.ID, session.TargetEntityID, session.OperatorID),
	})
}

// EndSessionRequest is the payload for ending a support session
type EndSessionRequest struct {
	// SessionID is optional; when omitted the caller's own active session ends
	SessionID string `json:"sessionId,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// EndSession handles POST /end-session
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	var req EndSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid JSON request body"))
			return
		}
	}

	session, err := h.service.EndSession(r.Context(), support.EndSessionParams{
		SessionID:     req.SessionID,
		CallerID:      authUser.UserId,
		CallerIsAdmin: isAdmin(r),
		Summary:       req.Summary,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"message": "support session ended",
		"session": session,
	})
}

// SwitchTargetRequest is the payload for switching to a new target
type SwitchTargetRequest struct {
	TargetEntityID string `json:"targetEntityId"`
	// Reason is optional; when omitted the ending session's reason carries over
	Reason string `json:"reason,omitempty"`
}

// SwitchTarget handles POST /switch-target
func (h *Handler) SwitchTarget(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	var req SwitchTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid JSON request body"))
		return
	}

	session, err := h.service.SwitchTarget(r.Context(), support.SwitchTargetParams{
		OperatorID:    authUser.UserId,
		OperatorEmail: authUser.ExtraClaims.Email,
		OperatorRole:  authUser.ExtraClaims.Role,
		NewTargetID:   req.TargetEntityID,
		Reason:        req.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"sessionId":      session.ID,
		"supportContext": support.Acting(session.ID, session.TargetEntityID, session.OperatorID),
	})
}

// EmergencyExit handles POST /emergency-exit
func (h *Handler) EmergencyExit(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	session, err := h.service.EmergencyExit(r.Context(), authUser.UserId)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"message":   "support session ended",
		"sessionId": session.ID,
	})
}

// CurrentSession handles GET /current-session
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	session, err := h.service.CurrentSession(r.Context(), authUser.UserId)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"isActingAs": session != nil,
		"session":    session,
	})
}

// MySessions handles GET /my-sessions
func (h *Handler) MySessions(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	status := support.SessionStatus(r.URL.Query().Get("status"))

	sessions, total, err := h.service.ListOperatorSessions(r.Context(), authUser.UserId, status, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"sessions": sessions,
		"pagination": map[string]interface{}{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := authUserFromRequest(w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"), authUser.UserId, isAdmin(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, session)
}

// ActiveSessions handles GET /active-sessions
func (h *Handler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	sessions, total, err := h.service.ListActiveSessions(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"sessions": sessions,
		"pagination": map[string]interface{}{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
