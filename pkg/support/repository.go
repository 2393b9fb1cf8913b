package support

import (
	"context"
	"errors"
)

// Sentinel errors returned by repositories. The service layer maps them to
// typed errors with stable codes.
var (
	// ErrSessionNotFound means no matching session in the expected state
	ErrSessionNotFound = errors.New("support session not found")
	// ErrActiveSessionExists means the operator already holds an active
	// session; reported by the conditional create itself
	ErrActiveSessionExists = errors.New("operator already has an active support session")
	// ErrSessionEnded means the session's trail is frozen
	ErrSessionEnded = errors.New("support session already ended")
)

// EndSessionRecord is the repository-level write for ending a session.
// The repository computes the duration from the stored startedAt.
type EndSessionRecord struct {
	SessionID string
	Summary   string
	EndNote   string
}

// Repository defines the interface for support session storage.
//
// Implementations must make Create a single conditional write: the
// one-active-session-per-operator invariant is enforced by the write
// itself, never by a prior read.
type Repository interface {
	// Create inserts a new active session. Returns ErrActiveSessionExists
	// when the operator already holds an active session.
	Create(ctx context.Context, session SupportSession) (*SupportSession, error)

	// GetByID retrieves a session with its full action trail.
	GetByID(ctx context.Context, id string) (*SupportSession, error)

	// GetActiveByOperatorID retrieves the operator's active session without
	// the action trail (the hot path for per-request resolution).
	// Returns ErrSessionNotFound when the operator has none.
	GetActiveByOperatorID(ctx context.Context, operatorID string) (*SupportSession, error)

	// End transitions active → ended in one guarded write, recording
	// endedAt, duration, summary and note. Returns ErrSessionNotFound when
	// the session does not exist in the active state.
	End(ctx context.Context, record EndSessionRecord) (*SupportSession, error)

	// AppendAction appends one entry to an active session's trail.
	// Returns ErrSessionEnded when the session is missing or ended.
	AppendAction(ctx context.Context, sessionID string, action SessionAction) error

	// List retrieves sessions matching the filters, newest first, without
	// action trails.
	List(ctx context.Context, params ListSessionsParams) ([]SupportSession, error)

	// Count returns the number of sessions matching the filters.
	Count(ctx context.Context, params ListSessionsParams) (int, error)
}
