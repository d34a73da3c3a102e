package ports

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// LicenseFilter narrows a license listing. Zero values mean "no filter".
type LicenseFilter struct {
	Status       domain.LicenseStatus
	CustomerName string    // case-insensitive exact match
	ProductName  string    // case-insensitive exact match
	ExpiresFrom  time.Time // expiry_date >= ExpiresFrom
	ExpiresTo    time.Time // expiry_date <= ExpiresTo
}

// LicenseRepository defines persistence operations for licenses.
type LicenseRepository interface {
	// Create yields domain.ErrLicenseKeyTaken when the key already exists.
	Create(ctx context.Context, l *domain.License) (*domain.License, error)
	FindByID(ctx context.Context, id string) (*domain.License, error)
	FindByKey(ctx context.Context, key string) (*domain.License, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	// List returns matching licenses ordered by expiry date, then key.
	List(ctx context.Context, filter LicenseFilter) ([]*domain.License, error)
	Update(ctx context.Context, l *domain.License) (*domain.License, error)
	Delete(ctx context.Context, id string) error
	// CustomerNames and ProductNames return sorted distinct values.
	CustomerNames(ctx context.Context) ([]string, error)
	ProductNames(ctx context.Context) ([]string, error)
}
