package company

import (
	"time"
)

// CompanyStatus represents the lifecycle state of a customer company
type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

// Company represents a customer organization in the tenant directory.
// Support sessions resolve their impersonation target against this record.
type Company struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    CompanyStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	DeletedAt *time.Time    `json:"deletedAt,omitempty"`
}

// CreateCompanyParams contains parameters for registering a company
type CreateCompanyParams struct {
	Name   string        `json:"name"`
	Status CompanyStatus `json:"status,omitempty"`
}

// ListCompaniesParams contains pagination parameters for listing companies
type ListCompaniesParams struct {
	Limit  int
	Offset int
}
