package client

import (
	"net/http"
)

// AuthContext is the read-side view of the authenticated request.
// Middleware and handlers use it instead of poking at context keys directly.
type AuthContext struct {
	IsAuthenticated bool
	User            *AuthUser
}

// HasRole reports whether the authenticated user has the given role.
func (c AuthContext) HasRole(role string) bool {
	if !c.IsAuthenticated || c.User == nil {
		return false
	}
	return c.User.ExtraClaims.Role == role
}

// HasAnyRole reports whether the authenticated user has any of the given roles.
func (c AuthContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

// GetAuthContext extracts the AuthContext from the request.
// Returns an unauthenticated context when AuthUserMiddleware did not run
// or rejected the token.
func GetAuthContext(r *http.Request) AuthContext {
	user, ok := r.Context().Value(AuthUserKey).(*AuthUser)
	if !ok || user == nil {
		return AuthContext{}
	}
	return AuthContext{
		IsAuthenticated: true,
		User:            user,
	}
}
