package domain

import "time"

// ApprovalState is the registration state of a portal user.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "PENDING"
	ApprovalApproved ApprovalState = "APPROVED"
	// ApprovalRejected and ApprovalDisabled are valid stored values but no
	// operation currently produces them.
	ApprovalRejected ApprovalState = "REJECTED"
	ApprovalDisabled ApprovalState = "DISABLED"
)

// User is a registered portal identity.
type User struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	PasswordHash      string        `json:"-"`
	Role              Role          `json:"role"`
	ApprovalState     ApprovalState `json:"approval_state"`
	ApprovedBy        string        `json:"approved_by,omitempty"`
	ClassOrDepartment string        `json:"class_or_department,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsApproved reports whether the user may authenticate.
func (u *User) IsApproved() bool {
	return u.ApprovalState == ApprovalApproved
}
