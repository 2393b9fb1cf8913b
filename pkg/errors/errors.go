package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable code clients branch on. The
// HTTP status is derived from it, never the other way around.
type ErrorCode string

const (
	// Generic codes
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists     ErrorCode = "ALREADY_EXISTS"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Support session lifecycle
	ErrCodeActiveSessionExists ErrorCode = "ACTIVE_SESSION_EXISTS"
	ErrCodeNoActiveSession     ErrorCode = "NO_ACTIVE_SESSION"
	ErrCodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionEnded        ErrorCode = "SESSION_ENDED"
	ErrCodeSwitchIncomplete    ErrorCode = "SWITCH_INCOMPLETE"

	// Impersonation targets and the restriction gate
	ErrCodeTargetNotFound          ErrorCode = "TARGET_NOT_FOUND"
	ErrCodeTargetNotAllowed        ErrorCode = "TARGET_NOT_ALLOWED"
	ErrCodeSupportActionRestricted ErrorCode = "SUPPORT_ACTION_RESTRICTED"
	ErrCodeActAsNotPermitted       ErrorCode = "ACT_AS_NOT_PERMITTED"

	// Permissions
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeRoleUnknown             ErrorCode = "ROLE_UNKNOWN"

	// Resources
	ErrCodeResourceNotFound    ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeResourceUnavailable ErrorCode = "RESOURCE_UNAVAILABLE"

	// Validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
)

// Error is the structured error the whole module traffics in. Details are
// safe to serialize into the HTTP error envelope; Err is the internal cause
// and never leaves the process.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches one key to the error's details and returns the error
// for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails merges a map into the error's details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// HTTPStatusCode returns the status the error's code maps to.
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New returns an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil cause
// yields nil, so call sites can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := as(err); ok {
		return e.Code == code
	}
	return false
}

// GetCode returns err's code, or ErrCodeInternal for plain errors.
func GetCode(err error) ErrorCode {
	if e, ok := as(err); ok {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails returns err's details, nil for plain errors.
func GetDetails(err error) map[string]interface{} {
	if e, ok := as(err); ok {
		return e.Details
	}
	return nil
}

var httpStatusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeInvalidFormat:    http.StatusBadRequest,
	ErrCodeMissingRequired:  http.StatusBadRequest,
	ErrCodeRoleUnknown:      http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	ErrCodeForbidden:               http.StatusForbidden,
	ErrCodeInsufficientPermissions: http.StatusForbidden,
	ErrCodeSupportActionRestricted: http.StatusForbidden,
	ErrCodeActAsNotPermitted:       http.StatusForbidden,
	ErrCodeTargetNotAllowed:        http.StatusForbidden,

	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeResourceNotFound: http.StatusNotFound,
	ErrCodeSessionNotFound:  http.StatusNotFound,
	ErrCodeNoActiveSession:  http.StatusNotFound,
	ErrCodeTargetNotFound:   http.StatusNotFound,

	ErrCodeConflict:            http.StatusConflict,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeActiveSessionExists: http.StatusConflict,
	ErrCodeSessionEnded:        http.StatusConflict,
	ErrCodeSwitchIncomplete:    http.StatusConflict,

	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,

	ErrCodeResourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:             http.StatusServiceUnavailable,
}

// MapErrorCodeToHTTPStatus maps an error code to its HTTP status. Unknown
// codes map to 500 so a missing table entry can never leak a 200.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NotFound returns the generic not-found error for a resource.
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// AlreadyExists returns the generic duplicate-resource error.
func AlreadyExists(resourceType, identifier string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s already exists: %s", resourceType, identifier)
}

// InvalidInput flags one bad request field.
func InvalidInput(field, reason string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, reason)
}

// Unauthorized returns a 401-coded error.
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Forbidden returns a 403-coded error.
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// Internal returns a 500-coded error.
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps a cause as a 500-coded error.
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ValidationFailed bundles per-field validation problems into one error.
func ValidationFailed(details map[string]interface{}) *Error {
	return New(ErrCodeValidationFailed, "validation failed").WithDetails(details)
}

// MissingRequired flags a required field that was not provided.
func MissingRequired(field string) *Error {
	return Newf(ErrCodeMissingRequired, "%s is required", field).WithDetail("field", field)
}

// ActiveSessionExists is the conflict returned when an operator tries to
// start a second support session.
func ActiveSessionExists(operatorID string) *Error {
	return New(ErrCodeActiveSessionExists, "operator already has an active support session").
		WithDetail("operator_id", operatorID)
}

// NoActiveSession is returned when an operation expects an active support
// session and none exists.
func NoActiveSession(operatorID string) *Error {
	return New(ErrCodeNoActiveSession, "no active support session").
		WithDetail("operator_id", operatorID)
}

// SessionEnded is returned when something tries to mutate an ended session.
func SessionEnded(sessionID string) *Error {
	return New(ErrCodeSessionEnded, "support session already ended").
		WithDetail("session_id", sessionID)
}

// TargetNotFound is returned when the impersonation target cannot be
// resolved in the tenant directory.
func TargetNotFound(targetEntityID string) *Error {
	return Newf(ErrCodeTargetNotFound, "target company not found: %s", targetEntityID).
		WithDetail("target_entity_id", targetEntityID)
}

// SupportActionRestricted is returned when a request is blocked because it
// is on the impersonation deny-list.
func SupportActionRestricted(method, path string) *Error {
	return New(ErrCodeSupportActionRestricted, "this action is not permitted while acting as a customer").
		WithDetail("method", method).
		WithDetail("path", path)
}

// SwitchIncomplete wraps the start failure of a target switch whose end half
// already committed. The caller is session-less and must retry the start.
func SwitchIncomplete(err error, endedSessionID string) *Error {
	return Wrap(err, ErrCodeSwitchIncomplete,
		"previous session ended but new session could not be started; retry act-as").
		WithDetail("ended_session_id", endedSessionID)
}

// RateLimitExceeded is the 429-coded error; retryAfter mirrors the
// Retry-After header when the caller sets one.
func RateLimitExceeded(retryAfter string) *Error {
	err := New(ErrCodeRateLimitExceeded, "rate limit exceeded")
	if retryAfter != "" {
		err.WithDetail("retry_after", retryAfter)
	}
	return err
}
