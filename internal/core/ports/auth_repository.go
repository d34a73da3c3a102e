package ports

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// UserRepository is the portal credential store.
type UserRepository interface {
	// Create persists a new user and returns it with its assigned ID.
	// A uniqueness violation on email yields domain.ErrEmailTaken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	// ListPending returns PENDING users whose role is in roles.
	ListPending(ctx context.Context, roles []domain.Role) ([]*domain.User, error)
	// Update writes the mutable profile fields (name, email, class or
	// department, updated_at).
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	// MarkApproved transitions the user from PENDING to APPROVED in a single
	// conditional write. It returns domain.ErrNotPending when the user is no
	// longer PENDING, so at most one concurrent caller succeeds.
	MarkApproved(ctx context.Context, id, approverID string, at time.Time) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// AccountRepository is the licensing credential store.
type AccountRepository interface {
	// Create yields domain.ErrUsernameTaken or domain.ErrEmailTaken on
	// uniqueness violations.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Count(ctx context.Context) (int64, error)
}
