package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrLicenseNotFound = errors.New("license not found")

	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrLicenseKeyTaken = errors.New("license key already exists")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotApproved        = errors.New("user not approved yet")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")

	ErrForbidden      = errors.New("access forbidden")
	ErrApprovalDenied = errors.New("approver does not have permission to approve this user")

	// ErrNotPending is returned by repositories when a conditional approval
	// finds the user already out of the PENDING state.
	ErrNotPending = errors.New("user is not pending approval")

	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidLicenseStatus = errors.New("invalid license status")
)

// ValidationError carries per-field validation messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
