package ports

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// RegisterInput carries a portal registration request.
type RegisterInput struct {
	Name              string
	Email             string
	Password          string
	Role              domain.Role
	ClassOrDepartment string
}

// UserView is the outward projection of a portal user.
type UserView struct {
	ID                string
	Name              string
	Email             string
	Role              domain.Role
	ApprovalState     domain.ApprovalState
	ClassOrDepartment string
	ApprovedBy        string
	ApproverName      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RegistrationResult is returned by Register.
type RegistrationResult struct {
	User             UserView
	RequiredApprover domain.Role // empty when auto-approved
	Message          string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Role      string
	Message   string
}

// ApprovalOutcome classifies the result of an approval request.
type ApprovalOutcome string

const (
	ApprovalOutcomeApproved   ApprovalOutcome = "approved"
	ApprovalOutcomeNotPending ApprovalOutcome = "not_pending"
	ApprovalOutcomeDenied     ApprovalOutcome = "denied"
)

// ApprovalResult is returned by Approve. It is also returned alongside
// domain.ErrApprovalDenied so the caller can show the unchanged target.
type ApprovalResult struct {
	User    UserView
	Outcome ApprovalOutcome
	Message string
}

// UserUpdate replaces every mutable profile field.
type UserUpdate struct {
	Name              string
	Email             string
	ClassOrDepartment string
}

// UserPatch updates only the fields that are non-nil.
type UserPatch struct {
	Name              *string
	Email             *string
	ClassOrDepartment *string
}

// UserService defines the portal use cases.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*RegistrationResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Approve(ctx context.Context, targetID, approverID string) (*ApprovalResult, error)
	ListPending(ctx context.Context, approverRole domain.Role) ([]UserView, error)
	ListByRole(ctx context.Context, role domain.Role) ([]UserView, error)
	GetByRole(ctx context.Context, role domain.Role, id string) (*UserView, error)
	UpdateByRole(ctx context.Context, role domain.Role, id string, in UserUpdate) (*UserView, error)
	PatchByRole(ctx context.Context, role domain.Role, id string, in UserPatch) (*UserView, error)
	DeleteByRole(ctx context.Context, role domain.Role, id string) error
}

// AccountRegisterInput carries a licensing account registration.
type AccountRegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.AccountRole
}

// AccountAuthResult is returned by licensing register and login.
type AccountAuthResult struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Role      domain.AccountRole
	Message   string
}

// AccountService defines the licensing authentication use cases.
type AccountService interface {
	Register(ctx context.Context, in AccountRegisterInput) (*AccountAuthResult, error)
	Login(ctx context.Context, username, password string) (*AccountAuthResult, error)
}
