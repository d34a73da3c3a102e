package domain

import (
	"strings"
	"time"
)

// LicenseStatus represents the lifecycle state of a license.
type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "ACTIVE"
	LicenseExpired   LicenseStatus = "EXPIRED"
	LicenseRevoked   LicenseStatus = "REVOKED"
	LicenseSuspended LicenseStatus = "SUSPENDED"
)

// DateLayout is the wire format of license calendar dates.
const DateLayout = "2006-01-02"

// ParseLicenseStatus accepts any casing of a known status.
func ParseLicenseStatus(s string) (LicenseStatus, error) {
	switch st := LicenseStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case LicenseActive, LicenseExpired, LicenseRevoked, LicenseSuspended:
		return st, nil
	}
	return "", ErrInvalidLicenseStatus
}

// License is a software license issued to a customer.
//
// MaxUsers and CurrentUsers are informational: no operation enforces a seat
// limit.
type License struct {
	ID            string
	Key           string
	ProductName   string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	ExpiryDate    time.Time
	Status        LicenseStatus
	MaxUsers      *int
	CurrentUsers  int
	Description   string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpiredAsOf reports whether the license expiry date is on or before asOf.
func (l *License) ExpiredAsOf(asOf time.Time) bool {
	return !DateOf(l.ExpiryDate).After(DateOf(asOf))
}
