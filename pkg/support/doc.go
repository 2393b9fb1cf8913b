// Package support implements customer-support impersonation sessions:
// a support operator explicitly "acts as" a customer company for a
// recorded, bounded stretch of work, and every request served in that
// mode is attributed to the operator.
//
// # Lifecycle
//
// A session moves NONE → ACTIVE → ENDED and never leaves ENDED. An
// operator has at most one active session; the repositories enforce
// this with a single conditional write (a partial unique index in
// Postgres), never with a read-then-write check. Ending a session
// stamps endedAt, computes the duration, and freezes the action trail.
// Sessions do not expire on their own: an operator who walks away
// stays acting until end-session, emergency-exit, or an admin ends the
// session. Callers that want a bound should watch estimatedDurationMinutes,
// which is advisory only.
//
// # Request pipeline
//
// Handlers composing the middleware mount them in this order:
//
//	r.Use(support.ActingMiddleware(sessions))
//	r.Use(audit.Middleware(recorder))
//	r.Use(support.RestrictionGate(nil))
//
// ActingMiddleware resolves the caller's active session once per
// request. When one exists it replaces the caller's tenant scope with
// the target company, stores an immutable ActingContext, and sets the
// X-Support-Acting-As response header. A store failure is a 500: the
// middleware refuses to guess whose data the request should see.
//
// RestrictionGate sits inside the audit layer so its 403s are audited.
// It blocks the configured deny-list while acting and marks the request
// so no trail action is recorded for the blocked work.
//
// # Trail ordering
//
// Trail entries are appended when responses complete, so under
// concurrent requests the trail records completion order, not arrival
// order. Consumers that need arrival order should sort by timestamp
// and accept ties.
package support
