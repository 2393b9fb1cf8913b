// Package roles resolves platform roles to support-subsystem capabilities.
//
// The role set is closed: admin, support, recruiter, hiring_manager,
// candidate. ParseRole rejects anything else so a typo in a token claim can
// never resolve to a working role.
//
// Capabilities answer two questions:
//   - CanActAs: may this principal start a support session and act as a
//     customer company?
//   - CanModifyRecords: may this principal mutate records outside a support
//     session (the unrestricted admin surface)?
//
// Admins hold both. Support operators hold CanActAs only; record mutation
// while acting is governed separately by the restriction gate. Tenant roles
// hold neither.
//
// A Resolver can narrow the defaults per deployment:
//
//	resolver := roles.NewResolver(
//		roles.WithAllowedTargets([]string{"company-a", "company-b"}),
//		roles.WithRestrictedOperators([]string{offboardedOperatorID}),
//	)
//
//	if err := resolver.CheckActAs(role, operatorID, targetID); err != nil {
//		// typed error: ACT_AS_NOT_PERMITTED or TARGET_NOT_ALLOWED
//	}
//
// The resolver is consulted at session start and at the entry points of the
// unrestricted admin surface.
package roles
