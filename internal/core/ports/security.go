package ports

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// Token audiences keep portal and licensing credentials apart.
const (
	AudiencePortal    = "portal"
	AudienceLicensing = "licensing"
)

// PasswordHasher hashes and verifies secrets one-way.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs time-limited bearer tokens.
type TokenIssuer interface {
	Issue(p Principal) (token string, expiresAt time.Time, err error)
}

// TokenVerifier validates a bearer token for the given audience.
type TokenVerifier interface {
	Verify(token, audience string) (Principal, error)
}

// LoginThrottle tracks failed login attempts per identifier.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// AccessGate decides whether a principal may invoke an operation.
type AccessGate interface {
	Allow(ctx context.Context, p Principal, operation string) (bool, error)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}

// AuditSink accepts audit events without blocking the caller.
type AuditSink interface {
	Record(event domain.AuditEvent)
}
