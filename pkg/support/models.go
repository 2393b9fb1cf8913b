package support

import (
	"time"
)

// SessionStatus represents the lifecycle state of a support session.
// The machine is NONE → ACTIVE → ENDED; ended is terminal.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// Action verbs recorded in session trails and audit entries.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionRead   = "READ"

	// Named lifecycle events
	ActionSessionStarted = "SESSION_STARTED"
	ActionSessionEnded   = "SESSION_ENDED"
	ActionTargetSwitched = "TARGET_SWITCHED"
	ActionEmergencyExit  = "EMERGENCY_EXIT"
)

// SupportSession is the durable record of one operator acting as one
// customer company. JSON field names follow the platform's camelCase API
// convention.
type SupportSession struct {
	ID                       string          `json:"id"`
	OperatorID               string          `json:"operatorId"`
	OperatorEmail            string          `json:"operatorEmail"`
	TargetEntityID           string          `json:"targetEntityId"`
	TargetEntityName         string          `json:"targetEntityName"`
	StartedAt                time.Time       `json:"startedAt"`
	EndedAt                  *time.Time      `json:"endedAt,omitempty"`
	Reason                   string          `json:"reason"`
	EstimatedDurationMinutes int             `json:"estimatedDurationMinutes,omitempty"`
	Status                   SessionStatus   `json:"status"`
	Actions                  []SessionAction `json:"actions"`
	Metadata                 SessionMetadata `json:"metadata"`
}

// Active reports whether the session is still running.
func (s *SupportSession) Active() bool {
	return s.Status == SessionStatusActive
}

// SessionMetadata carries free-form session context that is not part of the
// lifecycle state itself.
type SessionMetadata struct {
	// OperatorRole is the role the operator held when the session started
	OperatorRole string `json:"operatorRole,omitempty"`
	// Summary is the operator-provided wrap-up recorded at end
	Summary string `json:"summary,omitempty"`
	// EndNote is a system-generated note (target switches, emergency exits)
	EndNote string `json:"endNote,omitempty"`
	// DurationSeconds is computed at end from startedAt → endedAt
	DurationSeconds int64 `json:"durationSeconds,omitempty"`
}

// SessionAction is one entry in a session's append-only trail. Trail order
// is response-completion order: under concurrent requests it may differ
// from arrival order.
type SessionAction struct {
	Timestamp  time.Time              `json:"timestamp"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resourceId,omitempty"`
	Method     string                 `json:"method"`
	Path       string                 `json:"path"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"statusCode,omitempty"`
}

// StartSessionParams contains parameters for starting a support session
type StartSessionParams struct {
	OperatorID               string
	OperatorEmail            string
	OperatorRole             string
	TargetEntityID           string
	Reason                   string
	EstimatedDurationMinutes int
}

// EndSessionParams contains parameters for ending a support session
type EndSessionParams struct {
	// SessionID is optional; when empty the caller's own active session ends
	SessionID string
	// CallerID identifies who is ending the session (owner or admin)
	CallerID string
	// CallerIsAdmin allows ending sessions owned by other operators
	CallerIsAdmin bool
	// Summary is the operator-provided wrap-up text
	Summary string
}

// SwitchTargetParams contains parameters for switching to a new target
type SwitchTargetParams struct {
	OperatorID    string
	OperatorEmail string
	OperatorRole  string
	NewTargetID   string
	Reason        string
}

// ListSessionsParams contains filters for session listing
type ListSessionsParams struct {
	OperatorID string
	// Status filters by lifecycle state; empty means all
	Status SessionStatus
	Limit  int
	Offset int
}
