package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-support/pkg/errors"
)

// ExtraClaims carries the platform claims the identity provider embeds in
// access tokens. Role is the principal's platform role; CompanyID is the
// tenant the principal belongs to (empty for platform staff).
type ExtraClaims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// AuthUser is the authenticated principal attached to the request context.
// Authentication itself happens in the external identity provider; this
// package only decodes the verified token.
type AuthUser struct {
	UserId      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"` // human name, not a login
	// UserUuid is the parsed form of UserId, convenient for repositories
	UserUuid    uuid.UUID
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
}

func (i AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", i.UserId),
		slog.String("role", i.ExtraClaims.Role),
		slog.String("company", i.ExtraClaims.CompanyID),
	)
}

// contextKey is a private type for the values this package stores in a
// request context. A pointer key cannot collide with keys from other
// packages, whatever strings they choose.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "client context value " + k.name
}

// ACCESS_TOKEN_NAME is the cookie the browser flow stores the access token in.
const ACCESS_TOKEN_NAME = "access_token"

var AuthUserKey = &contextKey{"AuthUser"}

// AuthUserMiddleware decodes the verified JWT claims into an AuthUser and
// attaches it to the request context. Must run after a Verifier.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			deny(w, r, errors.Unauthorized("missing or invalid token"))
			return
		}

		user, err := decodeAuthUser(claims)
		if err != nil {
			slog.Debug("Rejected token with unusable claims", "error", err)
			deny(w, r, errors.Unauthorized("invalid token claims"))
			return
		}

		slog.Debug("Authenticated request", "userId", user.UserId, "role", user.ExtraClaims.Role)

		ctx := context.WithValue(r.Context(), AuthUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// decodeAuthUser maps token claims onto an AuthUser. The issuer puts the
// platform fields in a nested extra_claims object and the user id in
// user_id, with the standard subject claim as fallback.
func decodeAuthUser(claims map[string]interface{}) (*AuthUser, error) {
	user := new(AuthUser)
	if err := unmarshalClaims(claims, user); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	if raw, ok := claims["extra_claims"]; ok {
		nested, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("extra_claims is %T, want an object", raw)
		}
		if err := unmarshalClaims(nested, &user.ExtraClaims); err != nil {
			return nil, fmt.Errorf("decode extra_claims: %w", err)
		}
	}

	if user.UserId == "" {
		if sub, ok := claims["sub"].(string); ok {
			user.UserId = sub
		}
	}
	if user.UserId == "" {
		return nil, fmt.Errorf("token carries no user id")
	}

	if parsed, err := uuid.Parse(user.UserId); err == nil {
		user.UserUuid = parsed
	} else {
		// Keep the string id; repositories that need a UUID reject it themselves.
		slog.Warn("User id in token is not a UUID", "userId", user.UserId)
	}

	return user, nil
}

// unmarshalClaims round-trips a claims map through JSON so the struct tags
// drive the field mapping.
func unmarshalClaims(m map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Verifier checks tokens from the Authorization header or the access token
// cookie, in that order.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

// TokenFromCookie is a jwtauth token finder reading the access token cookie.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ACCESS_TOKEN_NAME)
	if err != nil {
		return ""
	}
	return cookie.Value
}
