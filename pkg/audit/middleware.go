package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/support"
)

// AdminReasonHeader carries the caller-supplied justification for an
// admin action and is copied into the entry's adminContext.
const AdminReasonHeader = "X-Admin-Reason"

// Config holds the configuration for the audit middleware
type Config struct {
	// Recorder persists entries and trail actions; required.
	Recorder *Recorder
	// SensitivePrefixes are path prefixes audited even on successful GETs.
	SensitivePrefixes []string
	// AdminPrefixes mark matching entries with adminContext.isAdminAction.
	AdminPrefixes []string
	// SkipPaths are never audited (health checks and the like).
	SkipPaths []string
	// MaxBodyBytes caps how much of a request body is parsed into details.
	MaxBodyBytes int64
}

// Middleware handles HTTP request auditing
type Middleware struct {
	config Config
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(config Config) (*Middleware, error) {
	if config.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}

	if config.SensitivePrefixes == nil {
		config.SensitivePrefixes = []string{"/api/support", "/api/admin", "/admin", "/api/payments"}
	}
	if config.AdminPrefixes == nil {
		config.AdminPrefixes = []string{"/api/admin", "/admin"}
	}
	if config.SkipPaths == nil {
		config.SkipPaths = []string{"/healthz", "/metrics"}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 64 * 1024
	}

	return &Middleware{
		config: config,
	}, nil
}

// AuditRequestMiddleware observes response completion and records an
// audit entry for every request worth keeping: mutations, failures,
// sensitive surfaces, and anything done under a support session.
// Successful plain reads are skipped. Recording happens synchronously
// after the response is written, so audit entries and trail actions land
// in response-completion order; the client never waits on audit storage
// because its response is already out the door.
//
// Mount this inside the acting middleware and outside the restriction
// gate: the acting context must already be resolved, and gate rejections
// must still flow through here to be recorded.
func (m *Middleware) AuditRequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ctx, mark := support.WithRestrictionMark(r.Context())
		r = r.WithContext(ctx)

		var body map[string]interface{}
		if isMutating(r.Method) {
			body = m.captureRequestBody(r)
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		acting := support.ActingFromContext(r.Context())
		if !m.shouldLog(r.Method, r.URL.Path, status, acting.IsActingAs) {
			return
		}

		entry := m.buildEntry(r, status, time.Since(start), acting, body)
		m.config.Recorder.Record(r.Context(), entry, mark.Restricted)
	})
}

func (m *Middleware) buildEntry(r *http.Request, status int, elapsed time.Duration, acting support.ActingContext, body map[string]interface{}) *AuditLogEntry {
	resource, resourceID := resourceFromPath(r.URL.Path)

	userID := "anonymous"
	userRole := ""
	if authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser); ok {
		userID = authUser.UserId
		userRole = authUser.ExtraClaims.Role
	}
	// Attribution never follows the impersonated identity.
	if acting.IsActingAs {
		userID = acting.OperatorID
	}

	details := map[string]interface{}{}
	if query := sanitizedQuery(r); len(query) > 0 {
		details["query"] = query
	}
	if len(body) > 0 {
		details["body"] = body
	}
	if len(details) == 0 {
		details = nil
	}

	entry := &AuditLogEntry{
		Timestamp:  time.Now().UTC(),
		UserID:     userID,
		UserRole:   userRole,
		Action:     actionForRequest(r.Method, r.URL.Path),
		Resource:   resource,
		ResourceID: resourceID,
		Method:     r.Method,
		Path:       r.URL.Path,
		ClientIP:   clientIP(r),
		UserAgent:  r.UserAgent(),
		StatusCode: status,
		DurationMs: elapsed.Milliseconds(),
		Details:    details,
		SupportContext: SupportContext{
			IsSupportAction:  acting.IsActingAs,
			SupportSessionID: acting.SupportSessionID,
			OperatorID:       acting.OperatorID,
			TargetEntityID:   acting.TargetEntityID,
		},
	}

	if m.isAdminPath(r.URL.Path) {
		entry.AdminContext.IsAdminAction = true
	}
	if reason := r.Header.Get(AdminReasonHeader); reason != "" {
		entry.AdminContext.Reason = reason
	}

	return entry
}

func (m *Middleware) shouldLog(method, path string, status int, acting bool) bool {
	if isMutating(method) || status >= http.StatusBadRequest || acting {
		return true
	}
	for _, prefix := range m.config.SensitivePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return m.isAdminPath(path)
}

func (m *Middleware) skip(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

func (m *Middleware) isAdminPath(path string) bool {
	for _, prefix := range m.config.AdminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// captureRequestBody reads up to MaxBodyBytes of a JSON request body for
// the audit details and splices the bytes back so the handler still sees
// the full body. Oversized or non-JSON bodies pass through unparsed.
func (m *Middleware) captureRequestBody(r *http.Request) map[string]interface{} {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, m.config.MaxBodyBytes+1))
	r.Body = replayBody(buf, r.Body)
	if err != nil || int64(len(buf)) > m.config.MaxBodyBytes {
		return nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf, &parsed); err != nil {
		return nil
	}
	return SanitizeDetails(parsed)
}

type replayReadCloser struct {
	io.Reader
	closer io.Closer
}

func (r replayReadCloser) Close() error {
	return r.closer.Close()
}

func replayBody(read []byte, rest io.ReadCloser) io.ReadCloser {
	return replayReadCloser{
		Reader: io.MultiReader(bytes.NewReader(read), rest),
		closer: rest,
	}
}

// sanitizedQuery flattens the query string to first values and redacts
// sensitive keys.
func sanitizedQuery(r *http.Request) map[string]interface{} {
	values := r.URL.Query()
	if len(values) == 0 {
		return nil
	}

	query := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	return SanitizeDetails(query)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// actionForRequest maps support lifecycle endpoints to their named
// events and everything else to a CRUD verb by method.
func actionForRequest(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/support/act-as"):
		return support.ActionSessionStarted
	case strings.HasSuffix(path, "/support/end-session"):
		return support.ActionSessionEnded
	case strings.HasSuffix(path, "/support/switch-target"):
		return support.ActionTargetSwitched
	case strings.HasSuffix(path, "/support/emergency-exit"):
		return support.ActionEmergencyExit
	}

	switch method {
	case http.MethodPost:
		return support.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return support.ActionUpdate
	case http.MethodDelete:
		return support.ActionDelete
	default:
		return support.ActionRead
	}
}

// resourceFromPath derives the audited resource from the path: the first
// segment after the api/admin prefixes names the resource and the next
// segment is taken as its id when it looks like one.
func resourceFromPath(path string) (string, string) {
	segments := make([]string, 0, 8)
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) > 0 && segments[0] == "api" {
		segments = segments[1:]
	}
	if len(segments) > 1 && segments[0] == "admin" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "unknown", ""
	}

	resource := segments[0]
	if resource == "support" {
		resource = "support-session"
	}

	if len(segments) > 1 && looksLikeResourceID(segments[1]) {
		return resource, segments[1]
	}
	return resource, ""
}

// looksLikeResourceID accepts UUIDs, purely numeric ids, and prefixed
// ids like pay_123. Named sub-routes (act-as, capture) fail all three.
func looksLikeResourceID(segment string) bool {
	if _, err := uuid.Parse(segment); err == nil {
		return true
	}

	allDigits := len(segment) > 0
	for _, r := range segment {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return true
	}

	return strings.Contains(segment, "_")
}

// clientIP prefers the first X-Forwarded-For hop and falls back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
