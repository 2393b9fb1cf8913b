package company

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	mu        sync.RWMutex
	companies map[string]Company
}

// NewInMemoryRepository creates a new in-memory tenant directory
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		companies: make(map[string]Company),
	}
}

// Create registers a new company
func (r *InMemoryRepository) Create(ctx context.Context, params CreateCompanyParams) (*Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	status := params.Status
	if status == "" {
		status = CompanyStatusActive
	}
	company := Company{
		ID:        uuid.New().String(),
		Name:      params.Name,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.companies[company.ID] = company

	result := company
	return &result, nil
}

// GetByID retrieves a company by its ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	company, ok := r.companies[id]
	if !ok || company.DeletedAt != nil {
		return nil, ErrCompanyNotFound
	}
	result := company
	return &result, nil
}

// List retrieves companies with pagination, newest first
func (r *InMemoryRepository) List(ctx context.Context, params ListCompaniesParams) ([]Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Company
	for _, company := range r.companies {
		if company.DeletedAt == nil {
			all = append(all, company)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := params.Offset
	if start >= len(all) {
		return []Company{}, nil
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// Count returns the total number of companies
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, company := range r.companies {
		if company.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

// Delete soft-deletes a company
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[id]
	if !ok || company.DeletedAt != nil {
		return ErrCompanyNotFound
	}
	now := time.Now().UTC()
	company.DeletedAt = &now
	company.UpdatedAt = now
	r.companies[id] = company
	return nil
}

// Seed inserts a company with a fixed ID. Intended for demos and tests.
func (r *InMemoryRepository) Seed(id, name string) Company {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	company := Company{
		ID:        id,
		Name:      name,
		Status:    CompanyStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.companies[id] = company
	return company
}
