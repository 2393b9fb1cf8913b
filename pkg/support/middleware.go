package support

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-support/pkg/client"
	"github.com/tendant/simple-support/pkg/errors"
)

// ActingHeader is set on every response served while the caller is acting
// as a customer, so frontends can render the support banner.
const ActingHeader = "X-Support-Acting-As"

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "support context value " + k.name
}

var (
	actingContextKey = &contextKey{"ActingContext"}
	originalUserKey  = &contextKey{"OriginalAuthUser"}
)

// ActingContext describes whether the current request is being served
// under a support session. It is stored in the request context by value:
// downstream readers get a copy, so the decision made at the top of the
// request cannot be altered mid-flight.
type ActingContext struct {
	IsActingAs       bool   `json:"isActingAs"`
	SupportSessionID string `json:"supportSessionId,omitempty"`
	TargetEntityID   string `json:"targetEntityId,omitempty"`
	OperatorID       string `json:"operatorId,omitempty"`
}

// NotActing is the context for a request served under the caller's own
// identity.
func NotActing() ActingContext {
	return ActingContext{}
}

// Acting is the context for a request served under a support session.
func Acting(sessionID, targetEntityID, operatorID string) ActingContext {
	return ActingContext{
		IsActingAs:       true,
		SupportSessionID: sessionID,
		TargetEntityID:   targetEntityID,
		OperatorID:       operatorID,
	}
}

// ActingFromContext returns the acting context for the request. Requests
// that never passed through the acting middleware read as not acting.
func ActingFromContext(ctx context.Context) ActingContext {
	if acting, ok := ctx.Value(actingContextKey).(ActingContext); ok {
		return acting
	}
	return NotActing()
}

// OriginalUserFromContext returns the operator's own identity as it was
// before the acting middleware replaced the tenant scope. It is nil when
// the request is not acting.
func OriginalUserFromContext(ctx context.Context) *client.AuthUser {
	if user, ok := ctx.Value(originalUserKey).(*client.AuthUser); ok {
		return user
	}
	return nil
}

// ActingMiddleware resolves the authenticated caller's active support
// session once per request and rewrites the request identity when one is
// found. The operator's tenant scope is replaced, not widened: while
// acting, the effective identity carries only the target company.
//
// A session store failure is answered with 500. Falling back to the
// operator's own scope on a store error would silently serve the wrong
// tenant's data, so the middleware fails closed instead.
func ActingMiddleware(sessions *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := r.Context().Value(client.AuthUserKey).(*client.AuthUser)
			if !ok {
				http.Error(w, "Unable to find user info", http.StatusUnauthorized)
				return
			}

			session, err := sessions.CurrentSession(r.Context(), authUser.UserId)
			if err != nil {
				slog.Error("Failed to resolve support session, refusing request", "userId", authUser.UserId, "err", err)
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]interface{}{
					"code":    errors.ErrCodeInternal,
					"message": "failed to resolve support session",
				})
				return
			}

			ctx := r.Context()
			if session == nil {
				ctx = context.WithValue(ctx, actingContextKey, NotActing())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			effective := *authUser
			effective.ExtraClaims.CompanyID = session.TargetEntityID

			ctx = context.WithValue(ctx, originalUserKey, authUser)
			ctx = context.WithValue(ctx, client.AuthUserKey, &effective)
			ctx = context.WithValue(ctx, actingContextKey, Acting(session.ID, session.TargetEntityID, authUser.UserId))

			w.Header().Set(ActingHeader, session.TargetEntityID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
