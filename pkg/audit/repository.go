package audit

import (
	"context"
)

// Repository persists audit log entries. Entries are append-only; there
// is no update or delete surface.
type Repository interface {
	// Insert appends one entry.
	Insert(ctx context.Context, entry *AuditLogEntry) error

	// List returns entries newest first, filtered by params.
	List(ctx context.Context, params ListAuditLogsParams) ([]AuditLogEntry, error)

	// Count returns the number of entries matching params.
	Count(ctx context.Context, params ListAuditLogsParams) (int, error)
}
