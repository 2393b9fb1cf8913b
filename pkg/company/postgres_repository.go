package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL tenant directory repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create registers a new company
func (r *PostgresRepository) Create(ctx context.Context, params CreateCompanyParams) (*Company, error) {
	query := `
		INSERT INTO companies (name, status)
		VALUES ($1, $2)
		RETURNING id, name, status, created_at, updated_at, deleted_at
	`

	status := params.Status
	if status == "" {
		status = CompanyStatusActive
	}

	company := &Company{}
	var deletedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, params.Name, status).Scan(
		&company.ID,
		&company.Name,
		&company.Status,
		&company.CreatedAt,
		&company.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	if deletedAt.Valid {
		company.DeletedAt = &deletedAt.Time
	}

	return company, nil
}

// GetByID retrieves a company by its ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Company, error) {
	query := `
		SELECT id, name, status, created_at, updated_at, deleted_at
		FROM companies
		WHERE id = $1
		  AND deleted_at IS NULL
	`

	company := &Company{}
	var deletedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Status,
		&company.CreatedAt,
		&company.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if deletedAt.Valid {
		company.DeletedAt = &deletedAt.Time
	}

	return company, nil
}

// List retrieves companies with pagination, newest first
func (r *PostgresRepository) List(ctx context.Context, params ListCompaniesParams) ([]Company, error) {
	query := `
		SELECT id, name, status, created_at, updated_at, deleted_at
		FROM companies
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var company Company
		var deletedAt sql.NullTime

		err := rows.Scan(
			&company.ID,
			&company.Name,
			&company.Status,
			&company.CreatedAt,
			&company.UpdatedAt,
			&deletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}

		if deletedAt.Valid {
			company.DeletedAt = &deletedAt.Time
		}

		companies = append(companies, company)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating companies: %w", rows.Err())
	}

	return companies, nil
}

// Count returns the total number of companies
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM companies
		WHERE deleted_at IS NULL
	`

	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}

	return count, nil
}

// Delete soft-deletes a company
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE companies
		SET deleted_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}

	return nil
}
