package audit

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-support/pkg/support"
)

// SessionAppender appends one action to an active support session's trail.
// support.Repository satisfies it.
type SessionAppender interface {
	AppendAction(ctx context.Context, sessionID string, action support.SessionAction) error
}

// Recorder persists audit entries and mirrors support-session work onto
// the session trail. Both writes are best effort: a failure is logged and
// the response the user already received stays untouched. The two writes
// are also not atomic with each other, so an audit entry can exist
// without its trail action; the audit log is the complete record and the
// trail is the per-session view.
type Recorder struct {
	repo     Repository
	sessions SessionAppender
}

// NewRecorder creates a recorder. sessions may be nil when no trail
// mirroring is wanted.
func NewRecorder(repo Repository, sessions SessionAppender) *Recorder {
	return &Recorder{
		repo:     repo,
		sessions: sessions,
	}
}

// Record writes the audit entry and, for support actions, the matching
// trail action. trailSuppressed skips the trail write for requests the
// restriction gate rejected: the 403 is audited but nothing was done to
// the customer, so the trail stays clean.
func (rec *Recorder) Record(ctx context.Context, entry *AuditLogEntry, trailSuppressed bool) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if err := rec.repo.Insert(ctx, entry); err != nil {
		slog.Error("Failed to write audit log entry",
			"userId", entry.UserID, "method", entry.Method, "path", entry.Path, "err", err)
	}

	if !entry.SupportContext.IsSupportAction || rec.sessions == nil || trailSuppressed {
		return
	}

	action := support.SessionAction{
		Timestamp:  entry.Timestamp,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Method:     entry.Method,
		Path:       entry.Path,
		Details:    entry.Details,
		StatusCode: entry.StatusCode,
	}

	err := rec.sessions.AppendAction(ctx, entry.SupportContext.SupportSessionID, action)
	if err != nil {
		if stderrors.Is(err, support.ErrSessionEnded) {
			// The session ended while this request was in flight; the
			// audit entry above still records the work.
			slog.Warn("Session trail frozen before action could be appended",
				"sessionId", entry.SupportContext.SupportSessionID, "path", entry.Path)
			return
		}
		slog.Error("Failed to append session action",
			"sessionId", entry.SupportContext.SupportSessionID, "path", entry.Path, "err", err)
	}
}
