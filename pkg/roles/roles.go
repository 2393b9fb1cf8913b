package roles

import (
	"golang.org/x/exp/slices"

	"github.com/tendant/simple-support/pkg/errors"
)

// Role is the closed set of platform roles. Anything outside this set is
// rejected at parse time rather than defaulting to a harmless-looking role.
type Role string

const (
	// RoleAdmin is platform staff with unrestricted administration rights.
	RoleAdmin Role = "admin"
	// RoleSupport is platform support staff allowed to act as customers.
	RoleSupport Role = "support"
	// Tenant-side roles. None of them can impersonate.
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
	RoleCandidate     Role = "candidate"
)

var allRoles = []Role{RoleAdmin, RoleSupport, RoleRecruiter, RoleHiringManager, RoleCandidate}

// ParseRole converts a raw role claim into a Role.
// Unknown values are an error, never silently mapped.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !slices.Contains(allRoles, role) {
		return "", errors.Newf(errors.ErrCodeRoleUnknown, "unknown role: %s", s)
	}
	return role, nil
}

func (r Role) String() string {
	return string(r)
}

// IsPlatformStaff reports whether the role belongs to platform-side staff
// rather than a tenant user.
func (r Role) IsPlatformStaff() bool {
	return r == RoleAdmin || r == RoleSupport
}

// Capabilities describes what a role may do in the support subsystem.
type Capabilities struct {
	// CanActAs allows starting support sessions against customer companies.
	CanActAs bool `json:"canActAs"`
	// CanModifyRecords allows unrestricted record mutation outside a
	// support session (admin surface).
	CanModifyRecords bool `json:"canModifyRecords"`
}

// capabilityTable is the authoritative role → capability mapping.
var capabilityTable = map[Role]Capabilities{
	RoleAdmin:         {CanActAs: true, CanModifyRecords: true},
	RoleSupport:       {CanActAs: true, CanModifyRecords: false},
	RoleRecruiter:     {},
	RoleHiringManager: {},
	RoleCandidate:     {},
}

// Resolver resolves roles to capabilities, optionally narrowed per
// deployment: an allow-list of impersonation targets and a list of
// operators whose act-as right has been revoked.
type Resolver struct {
	allowedTargets      []string
	restrictedOperators []string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithAllowedTargets restricts impersonation to the given company ids.
// An empty list means every company is a permitted target.
func WithAllowedTargets(targets []string) ResolverOption {
	return func(r *Resolver) {
		r.allowedTargets = targets
	}
}

// WithRestrictedOperators revokes act-as for the given operator ids
// regardless of role.
func WithRestrictedOperators(operatorIDs []string) ResolverOption {
	return func(r *Resolver) {
		r.restrictedOperators = operatorIDs
	}
}

// NewResolver creates a Resolver with the given narrowing options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the capabilities for a role. Unknown roles resolve to no
// capabilities.
func (r *Resolver) Resolve(role Role) Capabilities {
	return capabilityTable[role]
}

// CheckActAs verifies that the operator with the given role may start a
// support session against the target company. It returns a typed error
// describing the first failed check.
func (r *Resolver) CheckActAs(role Role, operatorID, targetEntityID string) error {
	caps := r.Resolve(role)
	if !caps.CanActAs {
		return errors.Newf(errors.ErrCodeActAsNotPermitted, "role %s cannot act as a customer", role).
			WithDetail("role", role.String())
	}
	if slices.Contains(r.restrictedOperators, operatorID) {
		return errors.New(errors.ErrCodeActAsNotPermitted, "operator is not permitted to act as a customer").
			WithDetail("operator_id", operatorID)
	}
	if len(r.allowedTargets) > 0 && !slices.Contains(r.allowedTargets, targetEntityID) {
		return errors.Newf(errors.ErrCodeTargetNotAllowed, "target company %s is outside the permitted set", targetEntityID).
			WithDetail("target_entity_id", targetEntityID)
	}
	return nil
}

// CheckModifyRecords verifies that the role may perform unrestricted record
// mutation (the admin surface).
func (r *Resolver) CheckModifyRecords(role Role) error {
	if !r.Resolve(role).CanModifyRecords {
		return errors.Newf(errors.ErrCodeInsufficientPermissions, "role %s cannot modify records", role).
			WithDetail("role", role.String())
	}
	return nil
}
