package domain

import "time"

// AuditEvent records a security-relevant action for the audit trail.
type AuditEvent struct {
	ID        string
	Service   string // "portal" or "licensing"
	Action    string // e.g. "register", "approve", "login", "license.delete"
	SubjectID string // identity or license the action applies to
	ActorID   string // identity performing the action; empty for anonymous
	Outcome   string
	Detail    string
	At        time.Time
}
