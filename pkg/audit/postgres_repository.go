package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const auditColumns = `
	id, created_at, user_id, user_role, action, resource, resource_id,
	method, path, client_ip, user_agent, status_code, duration_ms, details,
	is_support_action, support_session_id, operator_id, target_entity_id,
	is_admin_action, admin_reason
`

// Insert appends one entry.
func (r *PostgresRepository) Insert(ctx context.Context, entry *AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''),
			$8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13, $14,
			$15, NULLIF($16, ''), NULLIF($17, ''), NULLIF($18, ''),
			$19, NULLIF($20, ''))
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.UserID,
		entry.UserRole,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Method,
		entry.Path,
		entry.ClientIP,
		entry.UserAgent,
		entry.StatusCode,
		entry.DurationMs,
		entry.Details,
		entry.SupportContext.IsSupportAction,
		entry.SupportContext.SupportSessionID,
		entry.SupportContext.OperatorID,
		entry.SupportContext.TargetEntityID,
		entry.AdminContext.IsAdminAction,
		entry.AdminContext.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log entry: %w", err)
	}
	return nil
}

// List returns entries newest first, filtered by params.
func (r *PostgresRepository) List(ctx context.Context, params ListAuditLogsParams) ([]AuditLogEntry, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR resource = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4 = '' OR support_session_id = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at <= $6)
		ORDER BY created_at DESC, id DESC
		LIMIT $7 OFFSET $8
	`

	rows, err := r.pool.Query(ctx, query,
		params.UserID,
		params.Resource,
		params.Action,
		params.SupportSessionID,
		nullableTime(params.From),
		nullableTime(params.To),
		limit,
		params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditLogEntry, 0)
	for rows.Next() {
		entry := AuditLogEntry{}
		var userRole, resourceID, clientIP, userAgent sql.NullString
		var supportSessionID, operatorID, targetEntityID, adminReason sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.UserID,
			&userRole,
			&entry.Action,
			&entry.Resource,
			&resourceID,
			&entry.Method,
			&entry.Path,
			&clientIP,
			&userAgent,
			&entry.StatusCode,
			&entry.DurationMs,
			&entry.Details,
			&entry.SupportContext.IsSupportAction,
			&supportSessionID,
			&operatorID,
			&targetEntityID,
			&entry.AdminContext.IsAdminAction,
			&adminReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log entry: %w", err)
		}

		entry.UserRole = userRole.String
		entry.ResourceID = resourceID.String
		entry.ClientIP = clientIP.String
		entry.UserAgent = userAgent.String
		entry.SupportContext.SupportSessionID = supportSessionID.String
		entry.SupportContext.OperatorID = operatorID.String
		entry.SupportContext.TargetEntityID = targetEntityID.String
		entry.AdminContext.Reason = adminReason.String

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log entries: %w", err)
	}

	return entries, nil
}

// Count returns the number of entries matching params.
func (r *PostgresRepository) Count(ctx context.Context, params ListAuditLogsParams) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM audit_logs
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR resource = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4 = '' OR support_session_id = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at <= $6)
	`

	var count int
	err := r.pool.QueryRow(ctx, query,
		params.UserID,
		params.Resource,
		params.Action,
		params.SupportSessionID,
		nullableTime(params.From),
		nullableTime(params.To),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}
	return count, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
