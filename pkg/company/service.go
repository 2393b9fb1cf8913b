package company

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/tendant/simple-support/pkg/errors"
)

// Service provides tenant directory business logic
type Service struct {
	repo Repository
}

// NewService creates a new tenant directory service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// CreateCompany registers a new company
func (s *Service) CreateCompany(ctx context.Context, params CreateCompanyParams) (*Company, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, errors.MissingRequired("name")
	}
	if params.Status != "" && params.Status != CompanyStatusActive && params.Status != CompanyStatusSuspended {
		return nil, errors.InvalidInput("status", "must be active or suspended")
	}

	company, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to create company")
	}
	return company, nil
}

// GetCompany retrieves a company by ID
func (s *Service) GetCompany(ctx context.Context, id string) (*Company, error) {
	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrCompanyNotFound) {
			return nil, errors.NotFound("company", id)
		}
		return nil, errors.InternalWrap(err, "failed to get company")
	}
	return company, nil
}

// ListCompanies retrieves companies with pagination and the total count
func (s *Service) ListCompanies(ctx context.Context, params ListCompaniesParams) ([]Company, int, error) {
	companies, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to list companies")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, errors.InternalWrap(err, "failed to count companies")
	}
	return companies, total, nil
}

// DeleteCompany soft-deletes a company
func (s *Service) DeleteCompany(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrCompanyNotFound) {
			return errors.NotFound("company", id)
		}
		return errors.InternalWrap(err, "failed to delete company")
	}
	return nil
}
