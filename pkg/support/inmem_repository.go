package support

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

// InMemoryRepository implements Repository using in-memory storage.
// The one-active-session-per-operator invariant is enforced inside the
// Create critical section, mirroring the partial unique index the Postgres
// implementation relies on.
type InMemoryRepository struct {
	mu               sync.RWMutex
	sessions         map[string]*SupportSession
	activeByOperator map[string]string
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions:         make(map[string]*SupportSession),
		activeByOperator: make(map[string]string),
	}
}

// copySession returns a deep copy so callers never alias stored state.
func copySession(s *SupportSession) (*SupportSession, error) {
	out := &SupportSession{}
	if err := copier.CopyWithOption(out, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new active session, rejecting a second active session
// for the same operator in the same critical section as the insert.
func (r *InMemoryRepository) Create(ctx context.Context, session SupportSession) (*SupportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activeByOperator[session.OperatorID]; exists {
		return nil, ErrActiveSessionExists
	}

	stored, err := copySession(&session)
	if err != nil {
		return nil, err
	}
	stored.Status = SessionStatusActive
	if stored.Actions == nil {
		stored.Actions = []SessionAction{}
	}

	r.sessions[stored.ID] = stored
	r.activeByOperator[stored.OperatorID] = stored.ID

	return copySession(stored)
}

// GetByID retrieves a session with its full action trail
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*SupportSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(stored)
}

// GetActiveByOperatorID retrieves the operator's active session without the trail
func (r *InMemoryRepository) GetActiveByOperatorID(ctx context.Context, operatorID string) (*SupportSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.activeByOperator[operatorID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	stored := r.sessions[id]

	out, err := copySession(stored)
	if err != nil {
		return nil, err
	}
	out.Actions = nil
	return out, nil
}

// End transitions active → ended in one guarded step
func (r *InMemoryRepository) End(ctx context.Context, record EndSessionRecord) (*SupportSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[record.SessionID]
	if !ok || stored.Status != SessionStatusActive {
		return nil, ErrSessionNotFound
	}

	now := time.Now().UTC()
	stored.Status = SessionStatusEnded
	stored.EndedAt = &now
	stored.Metadata.Summary = record.Summary
	stored.Metadata.EndNote = record.EndNote
	stored.Metadata.DurationSeconds = int64(now.Sub(stored.StartedAt).Seconds())

	delete(r.activeByOperator, stored.OperatorID)

	return copySession(stored)
}

// AppendAction appends one entry to an active session's trail
func (r *InMemoryRepository) AppendAction(ctx context.Context, sessionID string, action SessionAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sessionID]
	if !ok || stored.Status != SessionStatusActive {
		return ErrSessionEnded
	}

	entry := SessionAction{}
	if err := copier.CopyWithOption(&entry, &action, copier.Option{DeepCopy: true}); err != nil {
		return err
	}
	stored.Actions = append(stored.Actions, entry)
	return nil
}

// List retrieves sessions matching the filters, newest first, without trails
func (r *InMemoryRepository) List(ctx context.Context, params ListSessionsParams) ([]SupportSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*SupportSession
	for _, stored := range r.sessions {
		if !r.matches(stored, params) {
			continue
		}
		matched = append(matched, stored)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	start := params.Offset
	if start >= len(matched) {
		return []SupportSession{}, nil
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}

	out := make([]SupportSession, 0, end-start)
	for _, stored := range matched[start:end] {
		copied, err := copySession(stored)
		if err != nil {
			return nil, err
		}
		copied.Actions = nil
		out = append(out, *copied)
	}
	return out, nil
}

// Count returns the number of sessions matching the filters
func (r *InMemoryRepository) Count(ctx context.Context, params ListSessionsParams) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, stored := range r.sessions {
		if r.matches(stored, params) {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) matches(s *SupportSession, params ListSessionsParams) bool {
	if params.OperatorID != "" && s.OperatorID != params.OperatorID {
		return false
	}
	if params.Status != "" && s.Status != params.Status {
		return false
	}
	return true
}
