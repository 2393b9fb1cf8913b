package company

import (
	"context"
	"errors"
)

// ErrCompanyNotFound is returned by repositories when no matching company
// exists or it has been deleted.
var ErrCompanyNotFound = errors.New("company not found")

// Repository defines the interface for tenant directory data access
type Repository interface {
	// Create registers a new company
	Create(ctx context.Context, params CreateCompanyParams) (*Company, error)

	// GetByID retrieves a company by its ID
	GetByID(ctx context.Context, id string) (*Company, error)

	// List retrieves companies with pagination
	List(ctx context.Context, params ListCompaniesParams) ([]Company, error)

	// Count returns the total number of companies
	Count(ctx context.Context) (int, error)

	// Delete soft-deletes a company
	Delete(ctx context.Context, id string) error
}
