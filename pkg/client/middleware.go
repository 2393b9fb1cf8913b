package client

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-support/pkg/errors"
)

// RequireAuth rejects requests that reached the handler without an
// authenticated caller in the context. Mount it after AuthUserMiddleware.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := GetAuthContext(r)
		if !auth.IsAuthenticated {
			slog.Debug("Unauthenticated request to protected resource", "path", r.URL.Path)
			deny(w, r, errors.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only callers holding at least one of the given roles.
// Unauthenticated callers get 401, authenticated callers without a matching
// role get 403. Mount it after AuthUserMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := GetAuthContext(r)
			if !auth.IsAuthenticated {
				slog.Debug("Unauthenticated request to role-protected resource",
					"path", r.URL.Path,
					"requiredRoles", roles)
				deny(w, r, errors.Unauthorized("authentication required"))
				return
			}
			if !auth.HasAnyRole(roles...) {
				slog.Warn("Caller lacks required role",
					"userId", auth.User.UserId,
					"role", auth.User.ExtraClaims.Role,
					"requiredRoles", roles)
				deny(w, r, errors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminRoleMiddleware restricts a route group to platform administrators.
func AdminRoleMiddleware(next http.Handler) http.Handler {
	return RequireRole("admin")(next)
}

func deny(w http.ResponseWriter, r *http.Request, err *errors.Error) {
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, map[string]interface{}{
		"code":    err.Code,
		"message": err.Message,
	})
}
