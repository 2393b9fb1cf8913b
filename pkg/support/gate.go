package support

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/simple-support/pkg/errors"
)

// RestrictedAction names one method+path combination that support
// operators may not perform while acting as a customer. Method "" or "*"
// matches any method. Path patterns match whole segments: "{id}" and "*"
// each match exactly one segment, and a trailing "*" matches everything
// below the prefix.
type RestrictedAction struct {
	Method      string
	PathPattern string
}

// DefaultRestrictedActions is the deny-list applied when no custom list
// is configured: destructive tenant operations, payment capture, and the
// admin surfaces.
func DefaultRestrictedActions() []RestrictedAction {
	return []RestrictedAction{
		{Method: http.MethodDelete, PathPattern: "/api/companies/{id}"},
		{Method: http.MethodDelete, PathPattern: "/api/users/{id}"},
		{Method: http.MethodPost, PathPattern: "/api/payments/*/capture"},
		{Method: "*", PathPattern: "/admin/*"},
		{Method: "*", PathPattern: "/api/admin/*"},
	}
}

// Matches reports whether the request method and path fall under this
// restriction.
func (a RestrictedAction) Matches(method, path string) bool {
	if a.Method != "" && a.Method != "*" && !strings.EqualFold(a.Method, method) {
		return false
	}
	return matchPath(a.PathPattern, path)
}

func matchPath(pattern, path string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	path = strings.TrimSuffix(path, "/")

	patternSegments := strings.Split(pattern, "/")
	pathSegments := strings.Split(path, "/")

	for i, segment := range patternSegments {
		if segment == "*" && i == len(patternSegments)-1 {
			return len(pathSegments) > i
		}
		if i >= len(pathSegments) {
			return false
		}
		if segment == "*" || (strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")) {
			continue
		}
		if segment != pathSegments[i] {
			return false
		}
	}
	return len(pathSegments) == len(patternSegments)
}

// RestrictionMark is a per-request flag the gate sets when it rejects a
// request. The audit layer creates the mark before the gate runs and
// reads it after the response completes, so the rejection shows up in the
// audit log but no trail action is recorded for work that never happened.
type RestrictionMark struct {
	Restricted bool
}

var restrictionMarkKey = &contextKey{"RestrictionMark"}

// WithRestrictionMark attaches a fresh mark to the context and returns it.
func WithRestrictionMark(ctx context.Context) (context.Context, *RestrictionMark) {
	mark := &RestrictionMark{}
	return context.WithValue(ctx, restrictionMarkKey, mark), mark
}

// RestrictionMarkFromContext returns the request's mark, or nil when the
// request never passed through the audit layer.
func RestrictionMarkFromContext(ctx context.Context) *RestrictionMark {
	if mark, ok := ctx.Value(restrictionMarkKey).(*RestrictionMark); ok {
		return mark
	}
	return nil
}

// RestrictionGate rejects restricted actions on requests served under a
// support session. Requests under the caller's own identity pass through
// untouched. Pass nil to use DefaultRestrictedActions.
func RestrictionGate(restricted []RestrictedAction) func(http.Handler) http.Handler {
	if restricted == nil {
		restricted = DefaultRestrictedActions()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acting := ActingFromContext(r.Context())
			if !acting.IsActingAs {
				next.ServeHTTP(w, r)
				return
			}

			for _, action := range restricted {
				if !action.Matches(r.Method, r.URL.Path) {
					continue
				}

				if mark := RestrictionMarkFromContext(r.Context()); mark != nil {
					mark.Restricted = true
				}

				slog.Warn("Blocked restricted action during support session",
					"sessionId", acting.SupportSessionID,
					"operatorId", acting.OperatorID,
					"method", r.Method,
					"path", r.URL.Path)

				restrictedErr := errors.SupportActionRestricted(r.Method, r.URL.Path)
				render.Status(r, restrictedErr.HTTPStatusCode())
				render.JSON(w, r, map[string]interface{}{
					"code":    restrictedErr.Code,
					"message": restrictedErr.Message,
					"details": restrictedErr.Details,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
