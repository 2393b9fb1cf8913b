// Package errors defines the typed errors the support impersonation
// subsystem traffics in.
//
// Every failure that can cross a package boundary is an *Error carrying a
// stable ErrorCode, a human-readable message, and an optional Details map.
// HTTP handlers derive the response status from the code, so a service
// never picks status codes itself and a given failure always looks the
// same on the wire.
//
// # Creating errors
//
//	import "github.com/tendant/simple-support/pkg/errors"
//
//	// With an explicit code
//	err := errors.New(errors.ErrCodeNoActiveSession, "no active support session")
//	err := errors.Newf(errors.ErrCodeInvalidInput, "invalid target: %s", targetID)
//
//	// Wrapping a cause (nil cause yields nil)
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to query sessions")
//
//	// Domain constructors carry their details along
//	err := errors.ActiveSessionExists(operatorID)
//	err := errors.TargetNotFound(targetEntityID)
//	err := errors.SupportActionRestricted(r.Method, r.URL.Path)
//
// # Codes and status mapping
//
// The session lifecycle codes are ErrCodeActiveSessionExists,
// ErrCodeNoActiveSession, ErrCodeSessionNotFound, ErrCodeSessionEnded and
// ErrCodeSwitchIncomplete; the impersonation gate contributes
// ErrCodeTargetNotFound, ErrCodeTargetNotAllowed,
// ErrCodeSupportActionRestricted and ErrCodeActAsNotPermitted. Generic
// codes (ErrCodeInvalidInput, ErrCodeUnauthorized, ErrCodeForbidden,
// ErrCodeNotFound, ErrCodeConflict, ErrCodeInternal, …) cover everything
// else. errors.go holds the full list.
//
// MapErrorCodeToHTTPStatus translates each code to its status: validation
// codes to 400, ErrCodeUnauthorized to 401, the restriction codes to 403,
// the missing-thing codes to 404, the session conflicts to 409,
// ErrCodeRateLimitExceeded to 429, and anything unknown to 500.
//
// # Service layer
//
//	func (s *SessionService) StartSession(ctx context.Context, params StartSessionParams) (*SupportSession, error) {
//		if params.Reason == "" {
//			return nil, errors.MissingRequired("reason")
//		}
//
//		target, err := s.directory.GetCompany(ctx, params.TargetEntityID)
//		if err != nil {
//			return nil, errors.TargetNotFound(params.TargetEntityID)
//		}
//
//		session, err := s.repo.Create(ctx, ...)
//		if err != nil {
//			// repository reports the unique-violation as ErrCodeActiveSessionExists
//			return nil, err
//		}
//		return session, nil
//	}
//
// # HTTP handlers
//
// Handlers map structured errors straight to responses. Alias the standard
// library's errors package for As and Is:
//
//	import (
//		stderrors "errors"
//
//		"github.com/tendant/simple-support/pkg/errors"
//	)
//
//	func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
//		var structuredErr *errors.Error
//		if !stderrors.As(err, &structuredErr) {
//			slog.Error("unstructured error", "err", err)
//			structuredErr = errors.Internal("internal server error")
//		}
//		render.Status(r, structuredErr.HTTPStatusCode())
//		render.JSON(w, r, map[string]interface{}{
//			"code":    structuredErr.Code,
//			"message": structuredErr.Message,
//		})
//	}
//
// # Inspection
//
//	if errors.IsCode(err, errors.ErrCodeActiveSessionExists) {
//		// tell the caller to end the current session first
//	}
//
//	code := errors.GetCode(err)
//	details := errors.GetDetails(err)
//
//	// Standard error wrapping still works
//	if stderrors.Is(err, pgx.ErrNoRows) {
//		// handle no rows
//	}
//
// # Conventions
//
// Details carry identifiers (session id, operator id, target id) and are
// serialized into the HTTP error envelope, so they must never contain
// tokens or credentials. Storage errors are wrapped as ErrCodeInternal at
// the repository boundary; the cause goes to the log, not the response
// body. Business failures keep their specific code all the way out.
package errors
