package domain

import (
	"strings"
	"time"
)

// AccountRole is a role of the licensing service.
type AccountRole string

const (
	AccountAdmin   AccountRole = "ADMIN"
	AccountManager AccountRole = "MANAGER"
	AccountUser    AccountRole = "USER"
)

// AccountStatus is binary; new accounts start ACTIVE.
type AccountStatus string

const (
	AccountActive   AccountStatus = "ACTIVE"
	AccountInactive AccountStatus = "INACTIVE"
)

// Account is an identity of the licensing service.
type Account struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Role         AccountRole   `json:"role"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ParseAccountRole accepts any casing of ADMIN, MANAGER or USER.
func ParseAccountRole(s string) (AccountRole, error) {
	switch r := AccountRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case AccountAdmin, AccountManager, AccountUser:
		return r, nil
	}
	return "", ErrInvalidRole
}
