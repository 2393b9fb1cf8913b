package support

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL.
//
// The one-active-session-per-operator invariant is enforced by the partial
// unique index on support_sessions(operator_id) WHERE status = 'active':
// Create is a plain insert and the database itself rejects the second
// active session, so there is no read-then-write window.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const sessionColumns = `
	id, operator_id, operator_email, target_entity_id, target_entity_name,
	started_at, ended_at, reason, estimated_duration_minutes, status,
	operator_role, summary, end_note, duration_seconds
`

func scanSession(row pgx.Row) (*SupportSession, error) {
	session := &SupportSession{}
	var endedAt sql.NullTime
	var operatorRole, summary, endNote sql.NullString

	err := row.Scan(
		&session.ID,
		&session.OperatorID,
		&session.OperatorEmail,
		&session.TargetEntityID,
		&session.TargetEntityName,
		&session.StartedAt,
		&endedAt,
		&session.Reason,
		&session.EstimatedDurationMinutes,
		&session.Status,
		&operatorRole,
		&summary,
		&endNote,
		&session.Metadata.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	session.Metadata.OperatorRole = operatorRole.String
	session.Metadata.Summary = summary.String
	session.Metadata.EndNote = endNote.String

	return session, nil
}

// Create inserts a new active session. The partial unique index reports a
// second active session for the operator as a unique violation.
func (r *PostgresRepository) Create(ctx context.Context, session SupportSession) (*SupportSession, error) {
	query := `
		INSERT INTO support_sessions (
			id, operator_id, operator_email, target_entity_id, target_entity_name,
			started_at, reason, estimated_duration_minutes, status, operator_role
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, 'active', NULLIF($9, '')
		) RETURNING ` + sessionColumns

	created, err := scanSession(r.pool.QueryRow(ctx, query,
		session.ID,
		session.OperatorID,
		session.OperatorEmail,
		session.TargetEntityID,
		session.TargetEntityName,
		session.StartedAt,
		session.Reason,
		session.EstimatedDurationMinutes,
		session.Metadata.OperatorRole,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrActiveSessionExists
		}
		return nil, fmt.Errorf("failed to create support session: %w", err)
	}

	created.Actions = []SessionAction{}
	return created, nil
}

// GetByID retrieves a session with its full action trail
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*SupportSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM support_sessions WHERE id = $1`

	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get support session: %w", err)
	}

	actions, err := r.listActions(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Actions = actions

	return session, nil
}

// GetActiveByOperatorID retrieves the operator's active session without the trail
func (r *PostgresRepository) GetActiveByOperatorID(ctx context.Context, operatorID string) (*SupportSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM support_sessions
		WHERE operator_id = $1
		  AND status = 'active'
	`

	session, err := scanSession(r.pool.QueryRow(ctx, query, operatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active support session: %w", err)
	}

	return session, nil
}

// End transitions active → ended in one guarded update, computing the
// duration from the stored start time.
func (r *PostgresRepository) End(ctx context.Context, record EndSessionRecord) (*SupportSession, error) {
	query := `
		UPDATE support_sessions
		SET status = 'ended',
		    ended_at = NOW(),
		    summary = NULLIF($2, ''),
		    end_note = NULLIF($3, ''),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::BIGINT,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		RETURNING ` + sessionColumns

	session, err := scanSession(r.pool.QueryRow(ctx, query, record.SessionID, record.Summary, record.EndNote))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to end support session: %w", err)
	}

	return session, nil
}

// AppendAction appends one entry to an active session's trail. The insert
// is guarded by the session's status so trails freeze at end.
func (r *PostgresRepository) AppendAction(ctx context.Context, sessionID string, action SessionAction) error {
	query := `
		INSERT INTO support_session_actions (
			session_id, occurred_at, action, resource, resource_id,
			method, path, details, status_code
		)
		SELECT $1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, 0)
		WHERE EXISTS (
			SELECT 1 FROM support_sessions
			WHERE id = $1 AND status = 'active'
		)
	`

	result, err := r.pool.Exec(ctx, query,
		sessionID,
		action.Timestamp,
		action.Action,
		action.Resource,
		action.ResourceID,
		action.Method,
		action.Path,
		action.Details,
		action.StatusCode,
	)
	if err != nil {
		return fmt.Errorf("failed to append session action: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSessionEnded
	}

	return nil
}

// listActions loads a session's trail in append order
func (r *PostgresRepository) listActions(ctx context.Context, sessionID string) ([]SessionAction, error) {
	query := `
		SELECT occurred_at, action, resource, resource_id, method, path, details, status_code
		FROM support_session_actions
		WHERE session_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session actions: %w", err)
	}
	defer rows.Close()

	actions := []SessionAction{}
	for rows.Next() {
		var action SessionAction
		var resourceID sql.NullString
		var statusCode sql.NullInt32

		err := rows.Scan(
			&action.Timestamp,
			&action.Action,
			&action.Resource,
			&resourceID,
			&action.Method,
			&action.Path,
			&action.Details,
			&statusCode,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session action: %w", err)
		}

		action.ResourceID = resourceID.String
		action.StatusCode = int(statusCode.Int32)
		actions = append(actions, action)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating session actions: %w", rows.Err())
	}

	return actions, nil
}

// List retrieves sessions matching the filters, newest first, without trails
func (r *PostgresRepository) List(ctx context.Context, params ListSessionsParams) ([]SupportSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM support_sessions
		WHERE ($1 = '' OR operator_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4
	`

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, params.OperatorID, string(params.Status), limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list support sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SupportSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan support session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating support sessions: %w", rows.Err())
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filters
func (r *PostgresRepository) Count(ctx context.Context, params ListSessionsParams) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM support_sessions
		WHERE ($1 = '' OR operator_id = $1)
		  AND ($2 = '' OR status = $2)
	`

	var count int
	err := r.pool.QueryRow(ctx, query, params.OperatorID, string(params.Status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count support sessions: %w", err)
	}

	return count, nil
}
