package audit

import (
	"context"

	"github.com/tendant/simple-support/pkg/errors"
)

// Service provides read access to the audit log for the admin surface.
// Writes go through the Recorder, never through here.
type Service struct {
	repo Repository
}

// NewService creates a new audit query service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// ListAuditLogs returns entries newest first with the filter applied.
func (s *Service) ListAuditLogs(ctx context.Context, params ListAuditLogsParams) ([]AuditLogEntry, int, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	if !params.From.IsZero() && !params.To.IsZero() && params.To.Before(params.From) {
		return nil, 0, errors.InvalidInput("to", "must not be before from")
	}

	entries, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to list audit logs")
	}
	total, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to count audit logs")
	}
	return entries, total, nil
}
