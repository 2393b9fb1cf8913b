package support

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-support/pkg/client"
)

// failingRepository returns the injected error from every method, standing
// in for a session store outage.
type failingRepository struct {
	err error
}

func (r *failingRepository) Create(ctx context.Context, session SupportSession) (*SupportSession, error) {
	return nil, r.err
}

func (r *failingRepository) GetByID(ctx context.Context, id string) (*SupportSession, error) {
	return nil, r.err
}

func (r *failingRepository) GetActiveByOperatorID(ctx context.Context, operatorID string) (*SupportSession, error) {
	return nil, r.err
}

func (r *failingRepository) End(ctx context.Context, record EndSessionRecord) (*SupportSession, error) {
	return nil, r.err
}

func (r *failingRepository) AppendAction(ctx context.Context, sessionID string, action SessionAction) error {
	return r.err
}

func (r *failingRepository) List(ctx context.Context, params ListSessionsParams) ([]SupportSession, error) {
	return nil, r.err
}

func (r *failingRepository) Count(ctx context.Context, params ListSessionsParams) (int, error) {
	return 0, r.err
}

func testAuthUser() *client.AuthUser {
	return &client.AuthUser{
		UserId:      testOperatorID,
		DisplayName: "Support Agent",
		ExtraClaims: client.ExtraClaims{
			Email: "agent@example.com",
			Role:  "support",
		},
	}
}

func requestWithAuthUser(method, target string, user *client.AuthUser) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	if user != nil {
		r = r.WithContext(context.WithValue(r.Context(), client.AuthUserKey, user))
	}
	return r
}

func TestActingMiddlewareNoAuthUser(t *testing.T) {
	service := newTestService()
	handler := ActingMiddleware(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without an authenticated user")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/candidates", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActingMiddlewareNotActing(t *testing.T) {
	service := newTestService()

	var seenActing ActingContext
	var seenUser *client.AuthUser
	handler := ActingMiddleware(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActing = ActingFromContext(r.Context())
		seenUser = r.Context().Value(client.AuthUserKey).(*client.AuthUser)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithAuthUser(http.MethodGet, "/api/candidates", testAuthUser()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seenActing.IsActingAs)
	assert.Empty(t, seenActing.SupportSessionID)
	assert.Empty(t, seenUser.ExtraClaims.CompanyID, "identity must be untouched when not acting")
	assert.Empty(t, w.Header().Get(ActingHeader))
	assert.Nil(t, OriginalUserFromContext(context.Background()))
}

func TestActingMiddlewareActing(t *testing.T) {
	service := newTestService()
	session, err := service.StartSession(context.Background(), startParams())
	require.NoError(t, err)

	var seenActing ActingContext
	var seenUser *client.AuthUser
	var seenOriginal *client.AuthUser
	handler := ActingMiddleware(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActing = ActingFromContext(r.Context())
		seenUser = r.Context().Value(client.AuthUserKey).(*client.AuthUser)
		seenOriginal = OriginalUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithAuthUser(http.MethodGet, "/api/candidates", testAuthUser()))

	assert.Equal(t, http.StatusOK, w.Code)

	// Acting context is populated
	assert.True(t, seenActing.IsActingAs)
	assert.Equal(t, session.ID, seenActing.SupportSessionID)
	assert.Equal(t, testCompanyA, seenActing.TargetEntityID)
	assert.Equal(t, testOperatorID, seenActing.OperatorID)

	// Tenant scope is replaced with the target company, not widened
	assert.Equal(t, testCompanyA, seenUser.ExtraClaims.CompanyID)
	assert.Equal(t, testOperatorID, seenUser.UserId, "user identity stays the operator")

	// The original identity is preserved alongside
	require.NotNil(t, seenOriginal)
	assert.Empty(t, seenOriginal.ExtraClaims.CompanyID)

	// Frontends learn about the impersonation from the response header
	assert.Equal(t, testCompanyA, w.Header().Get(ActingHeader))
}

func TestActingMiddlewareStoreErrorFailsClosed(t *testing.T) {
	service := NewSessionService(&failingRepository{err: errors.New("connection refused")}, nil, nil)

	handler := ActingMiddleware(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run when the session store is unavailable")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithAuthUser(http.MethodGet, "/api/candidates", testAuthUser()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, body["message"], "connection refused", "store errors must not leak to clients")
}

func TestActingContextImmutable(t *testing.T) {
	ctx := context.WithValue(context.Background(), actingContextKey, Acting("sess-1", testCompanyA, testOperatorID))

	first := ActingFromContext(ctx)
	first.IsActingAs = false
	first.TargetEntityID = "tampered"

	// Readers get copies; mutating one does not affect the stored value
	second := ActingFromContext(ctx)
	assert.True(t, second.IsActingAs)
	assert.Equal(t, testCompanyA, second.TargetEntityID)
}
