package audit

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
)

// InMemoryRepository implements Repository using in-memory storage.
// Entries are held in insertion order, which for audit records is
// response-completion order.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []AuditLogEntry
}

// NewInMemoryRepository creates a new in-memory audit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func copyEntry(entry *AuditLogEntry) (AuditLogEntry, error) {
	out := AuditLogEntry{}
	if err := copier.CopyWithOption(&out, entry, copier.Option{DeepCopy: true}); err != nil {
		return AuditLogEntry{}, err
	}
	return out, nil
}

// Insert appends one entry.
func (r *InMemoryRepository) Insert(ctx context.Context, entry *AuditLogEntry) error {
	stored, err := copyEntry(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, stored)
	return nil
}

// List returns entries newest first, filtered by params.
func (r *InMemoryRepository) List(ctx context.Context, params ListAuditLogsParams) ([]AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]AuditLogEntry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if !matchesEntry(&r.entries[i], params) {
			continue
		}
		entry, err := copyEntry(&r.entries[i])
		if err != nil {
			return nil, err
		}
		matched = append(matched, entry)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := params.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Count returns the number of entries matching params.
func (r *InMemoryRepository) Count(ctx context.Context, params ListAuditLogsParams) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for i := range r.entries {
		if matchesEntry(&r.entries[i], params) {
			count++
		}
	}
	return count, nil
}

func matchesEntry(entry *AuditLogEntry, params ListAuditLogsParams) bool {
	if params.UserID != "" && entry.UserID != params.UserID {
		return false
	}
	if params.Resource != "" && entry.Resource != params.Resource {
		return false
	}
	if params.Action != "" && entry.Action != params.Action {
		return false
	}
	if params.SupportSessionID != "" && entry.SupportContext.SupportSessionID != params.SupportSessionID {
		return false
	}
	if !params.From.IsZero() && entry.Timestamp.Before(params.From) {
		return false
	}
	if !params.To.IsZero() && entry.Timestamp.After(params.To) {
		return false
	}
	return true
}
