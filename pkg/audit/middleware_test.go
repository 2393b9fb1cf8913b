package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/company"
	"github.com/tendant/simple-support/pkg/roles"
	"github.com/tendant/simple-support/pkg/support"
)

const (
	testOperatorID = "op-1000"
	testCompanyID  = "11111111-1111-1111-1111-111111111111"
)

type testStack struct {
	router      *chi.Mux
	sessions    *support.SessionService
	supportRepo *support.InMemoryRepository
	auditRepo   *InMemoryRepository
}

// newTestStack wires the full request pipeline the way the server does:
// acting middleware, then audit, then the restriction gate, then a few
// plain tenant handlers.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	companyRepo := company.NewInMemoryRepository()
	companyRepo.Seed(testCompanyID, "TechCorp")

	supportRepo := support.NewInMemoryRepository()
	sessions := support.NewSessionService(supportRepo, company.NewService(companyRepo), roles.NewResolver())

	auditRepo := NewInMemoryRepository()
	middleware, err := NewMiddleware(Config{
		Recorder: NewRecorder(auditRepo, supportRepo),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(support.ActingMiddleware(sessions))
	r.Use(middleware.AuditRequestMiddleware)
	r.Use(support.RestrictionGate(nil))

	ok := func(status int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}
	}
	r.Get("/api/candidates", ok(http.StatusOK))
	r.Get("/api/candidates/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/candidates", func(w http.ResponseWriter, r *http.Request) {
		// Reading the body proves the audit capture spliced it back
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	r.Delete("/api/companies/{id}", ok(http.StatusOK))
	r.Get("/api/payments/{id}", ok(http.StatusOK))
	r.Get("/api/admin/settings", ok(http.StatusOK))
	r.Get("/healthz", ok(http.StatusInternalServerError))

	return &testStack{
		router:      r,
		sessions:    sessions,
		supportRepo: supportRepo,
		auditRepo:   auditRepo,
	}
}

func operatorUser() *client.AuthUser {
	return &client.AuthUser{
		UserId: testOperatorID,
		ExtraClaims: client.ExtraClaims{
			Email: "agent@example.com",
			Role:  "support",
		},
	}
}

func (s *testStack) do(t *testing.T, method, target string, body []byte, user *client.AuthUser) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		r = r.WithContext(context.WithValue(r.Context(), client.AuthUserKey, user))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *testStack) entries(t *testing.T) []AuditLogEntry {
	t.Helper()
	entries, err := s.auditRepo.List(context.Background(), ListAuditLogsParams{})
	require.NoError(t, err)
	return entries
}

func (s *testStack) startSession(t *testing.T) *support.SupportSession {
	t.Helper()
	session, err := s.sessions.StartSession(context.Background(), support.StartSessionParams{
		OperatorID:     testOperatorID,
		OperatorEmail:  "agent@example.com",
		OperatorRole:   "support",
		TargetEntityID: testCompanyID,
		Reason:         "Investigating a billing discrepancy",
	})
	require.NoError(t, err)
	return session
}

func TestAuditSkipsSuccessfulReads(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(t, http.MethodGet, "/api/candidates", nil, operatorUser())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, stack.entries(t))
}

func TestAuditRecordsMutation(t *testing.T) {
	stack := newTestStack(t)

	body := []byte(`{"name":"Dana","password":"hunter2"}`)
	w := stack.do(t, http.MethodPost, "/api/candidates", body, operatorUser())
	require.Equal(t, http.StatusCreated, w.Code)
	// The handler echoes the body it saw: the audit capture must not consume it
	assert.JSONEq(t, string(body), w.Body.String())

	entries := stack.entries(t)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, testOperatorID, entry.UserID)
	assert.Equal(t, "support", entry.UserRole)
	assert.Equal(t, support.ActionCreate, entry.Action)
	assert.Equal(t, "candidates", entry.Resource)
	assert.Empty(t, entry.ResourceID)
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/api/candidates", entry.Path)
	assert.Equal(t, http.StatusCreated, entry.StatusCode)
	assert.False(t, entry.SupportContext.IsSupportAction)
	assert.False(t, entry.AdminContext.IsAdminAction)
	assert.NotEmpty(t, entry.ID)

	captured := entry.Details["body"].(map[string]interface{})
	assert.Equal(t, "Dana", captured["name"])
	assert.Equal(t, "[REDACTED]", captured["password"])
}

func TestAuditRecordsFailedReads(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(t, http.MethodGet, "/api/candidates/404", nil, operatorUser())
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusNotFound, entries[0].StatusCode)
	assert.Equal(t, support.ActionRead, entries[0].Action)
}

func TestAuditRecordsSensitivePrefixReads(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(t, http.MethodGet, "/api/payments/pay_1", nil, operatorUser())
	require.Equal(t, http.StatusOK, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "payments", entries[0].Resource)
	assert.Equal(t, "pay_1", entries[0].ResourceID)
	assert.Equal(t, http.StatusOK, entries[0].StatusCode)
}

func TestAuditAdminContext(t *testing.T) {
	stack := newTestStack(t)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)
	r.Header.Set(AdminReasonHeader, "quarterly access review")
	r = r.WithContext(context.WithValue(r.Context(), client.AuthUserKey, &client.AuthUser{
		UserId:      "admin-2000",
		ExtraClaims: client.ExtraClaims{Role: "admin"},
	}))
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].AdminContext.IsAdminAction)
	assert.Equal(t, "quarterly access review", entries[0].AdminContext.Reason)
	assert.Equal(t, "settings", entries[0].Resource)
}

func TestAuditSkipPaths(t *testing.T) {
	stack := newTestStack(t)

	// Even a failing health check stays out of the audit log
	w := stack.do(t, http.MethodGet, "/healthz", nil, operatorUser())
	require.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Empty(t, stack.entries(t))
}

func TestAuditActingRecordsReadsAndTrail(t *testing.T) {
	stack := newTestStack(t)
	session := stack.startSession(t)

	w := stack.do(t, http.MethodGet, "/api/candidates", nil, operatorUser())
	require.Equal(t, http.StatusOK, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, testOperatorID, entry.UserID)
	assert.True(t, entry.SupportContext.IsSupportAction)
	assert.Equal(t, session.ID, entry.SupportContext.SupportSessionID)
	assert.Equal(t, testOperatorID, entry.SupportContext.OperatorID)
	assert.Equal(t, testCompanyID, entry.SupportContext.TargetEntityID)

	// The same request landed on the session trail after the start marker
	stored, err := stack.supportRepo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Actions, 2)
	assert.Equal(t, support.ActionSessionStarted, stored.Actions[0].Action)
	assert.Equal(t, "/api/candidates", stored.Actions[1].Path)
	assert.Equal(t, http.StatusOK, stored.Actions[1].StatusCode)
}

func TestAuditTrailOrderFollowsCompletionOrder(t *testing.T) {
	stack := newTestStack(t)
	session := stack.startSession(t)

	for _, target := range []string{"/api/candidates/1", "/api/candidates/2", "/api/candidates/3"} {
		w := stack.do(t, http.MethodGet, target, nil, operatorUser())
		require.Equal(t, http.StatusOK, w.Code)
	}

	stored, err := stack.supportRepo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Actions, 4)
	assert.Equal(t, "/api/candidates/1", stored.Actions[1].Path)
	assert.Equal(t, "/api/candidates/2", stored.Actions[2].Path)
	assert.Equal(t, "/api/candidates/3", stored.Actions[3].Path)
}

func TestAuditRestrictedActionSuppressesTrail(t *testing.T) {
	stack := newTestStack(t)
	session := stack.startSession(t)

	w := stack.do(t, http.MethodDelete, "/api/companies/"+testCompanyID, nil, operatorUser())
	require.Equal(t, http.StatusForbidden, w.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "SUPPORT_ACTION_RESTRICTED", envelope["code"])

	// The rejection is audited
	entries := stack.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, http.StatusForbidden, entries[0].StatusCode)
	assert.Equal(t, support.ActionDelete, entries[0].Action)
	assert.True(t, entries[0].SupportContext.IsSupportAction)

	// but nothing was done to the customer, so the trail stays clean
	stored, err := stack.supportRepo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Actions, 1)
	assert.Equal(t, support.ActionSessionStarted, stored.Actions[0].Action)
}

func TestAuditClientIP(t *testing.T) {
	stack := newTestStack(t)

	r := httptest.NewRequest(http.MethodPost, "/api/candidates", bytes.NewReader([]byte(`{}`)))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r = r.WithContext(context.WithValue(r.Context(), client.AuthUserKey, operatorUser()))
	w := httptest.NewRecorder()
	stack.router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.9", entries[0].ClientIP)

	// Without the header the connection's remote address is used
	w = stack.do(t, http.MethodPost, "/api/candidates", []byte(`{}`), operatorUser())
	require.Equal(t, http.StatusCreated, w.Code)
	entries = stack.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, "192.0.2.1", entries[0].ClientIP)
}

func TestAuditQueryRedaction(t *testing.T) {
	stack := newTestStack(t)

	w := stack.do(t, http.MethodGet, "/api/payments/pay_1?status=failed&access_token=tok_123", nil, operatorUser())
	require.Equal(t, http.StatusOK, w.Code)

	entries := stack.entries(t)
	require.Len(t, entries, 1)
	query := entries[0].Details["query"].(map[string]interface{})
	assert.Equal(t, "failed", query["status"])
	assert.Equal(t, "[REDACTED]", query["access_token"])
}

func TestAuditOversizedBodyNotParsed(t *testing.T) {
	companyRepo := company.NewInMemoryRepository()
	companyRepo.Seed(testCompanyID, "TechCorp")
	supportRepo := support.NewInMemoryRepository()
	sessions := support.NewSessionService(supportRepo, company.NewService(companyRepo), roles.NewResolver())
	auditRepo := NewInMemoryRepository()

	middleware, err := NewMiddleware(Config{
		Recorder:     NewRecorder(auditRepo, supportRepo),
		MaxBodyBytes: 16,
	})
	require.NoError(t, err)

	var seen []byte
	r := chi.NewRouter()
	r.Use(support.ActingMiddleware(sessions))
	r.Use(middleware.AuditRequestMiddleware)
	r.Post("/api/candidates", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})

	body := []byte(`{"name":"a body large enough to blow the capture cap"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/candidates", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), client.AuthUserKey, operatorUser()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The handler still received the whole body
	assert.Equal(t, body, seen)

	entries, err := auditRepo.List(context.Background(), ListAuditLogsParams{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Details["body"])
}

func TestAuditAnonymousRequests(t *testing.T) {
	auditRepo := NewInMemoryRepository()
	middleware, err := NewMiddleware(Config{
		Recorder: NewRecorder(auditRepo, support.NewInMemoryRepository()),
	})
	require.NoError(t, err)

	// No acting middleware here: this mimics a surface in front of auth
	r := chi.NewRouter()
	r.Use(middleware.AuditRequestMiddleware)
	r.Post("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader([]byte(`{"password":"wrong"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	entries, err := auditRepo.List(context.Background(), ListAuditLogsParams{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "anonymous", entries[0].UserID)
	assert.Equal(t, "[REDACTED]", entries[0].Details["body"].(map[string]interface{})["password"])
}

func TestActionForRequest(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		expected string
	}{
		{http.MethodPost, "/api/support/act-as", support.ActionSessionStarted},
		{http.MethodPost, "/api/support/end-session", support.ActionSessionEnded},
		{http.MethodPost, "/api/support/switch-target", support.ActionTargetSwitched},
		{http.MethodPost, "/api/support/emergency-exit", support.ActionEmergencyExit},
		{http.MethodPost, "/api/candidates", support.ActionCreate},
		{http.MethodPut, "/api/candidates/c-9", support.ActionUpdate},
		{http.MethodPatch, "/api/candidates/c-9", support.ActionUpdate},
		{http.MethodDelete, "/api/candidates/c-9", support.ActionDelete},
		{http.MethodGet, "/api/candidates", support.ActionRead},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, actionForRequest(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestResourceFromPath(t *testing.T) {
	tests := []struct {
		path       string
		resource   string
		resourceID string
	}{
		{"/api/companies/123", "companies", "123"},
		{"/api/companies", "companies", ""},
		{"/api/candidates/550e8400-e29b-41d4-a716-446655440000", "candidates", "550e8400-e29b-41d4-a716-446655440000"},
		{"/api/payments/pay_1/capture", "payments", "pay_1"},
		{"/api/support/act-as", "support-session", ""},
		{"/api/admin/audit-logs", "audit-logs", ""},
		{"/admin/settings", "settings", ""},
		{"/", "unknown", ""},
	}

	for _, tt := range tests {
		resource, resourceID := resourceFromPath(tt.path)
		assert.Equal(t, tt.resource, resource, tt.path)
		assert.Equal(t, tt.resourceID, resourceID, tt.path)
	}
}
