// Package audit records who did what: an append-only audit log of
// mutations, failures, sensitive reads, and everything done under a
// support session, with request bodies and query strings sanitized
// before they are stored.
//
// The middleware observes response completion and decides per request
// whether an entry is worth keeping; successful plain reads are not.
// Entries produced while acting as a customer are attributed to the
// operator and mirrored onto the support session's trail through the
// Recorder. Audit storage trouble is logged and swallowed: the primary
// response has already been served and is never failed retroactively.
package audit
