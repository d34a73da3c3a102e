package ports

import (
	"context"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// LicenseInput carries the writable fields of a license. On update every
// field is replaced; Key is ignored on update.
type LicenseInput struct {
	Key           string
	ProductName   string
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time
	ExpiryDate    time.Time
	Status        domain.LicenseStatus
	MaxUsers      *int
	Description   string
}

// LicenseService defines the license management use cases. The acting
// principal is passed explicitly to every mutating operation.
type LicenseService interface {
	Create(ctx context.Context, actor Principal, in LicenseInput) (*domain.License, error)
	Get(ctx context.Context, id string) (*domain.License, error)
	GetByKey(ctx context.Context, key string) (*domain.License, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]*domain.License, error)
	ListByCustomer(ctx context.Context, customerName string) ([]*domain.License, error)
	ListByProduct(ctx context.Context, productName string) ([]*domain.License, error)
	ListByStatus(ctx context.Context, status domain.LicenseStatus) ([]*domain.License, error)
	FindExpired(ctx context.Context, asOf time.Time) ([]*domain.License, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*domain.License, error)
	Update(ctx context.Context, actor Principal, id string, in LicenseInput) (*domain.License, error)
	UpdateStatus(ctx context.Context, actor Principal, id string, status domain.LicenseStatus) (*domain.License, error)
	Delete(ctx context.Context, actor Principal, id string) error
	GenerateKey(ctx context.Context) (string, error)
	CustomerNames(ctx context.Context) ([]string, error)
	ProductNames(ctx context.Context) ([]string, error)
}
