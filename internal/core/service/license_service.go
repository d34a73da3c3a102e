package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

const (
	licenseKeyPrefix   = "LIC-"
	keyGenerateRetries = 5
)

// LicenseService implements license management.
type LicenseService struct {
	repo   ports.LicenseRepository
	logger zerolog.Logger
	opts   options
	newKey func() string
}

func NewLicenseService(repo ports.LicenseRepository, logger zerolog.Logger, opts ...Option) *LicenseService {
	return &LicenseService{
		repo:   repo,
		logger: logger,
		opts:   buildOptions(opts),
		newKey: generateLicenseKey,
	}
}

// Create persists a new license owned by actor. A missing key is generated;
// a supplied key that already exists yields domain.ErrLicenseKeyTaken.
func (s *LicenseService) Create(ctx context.Context, actor ports.Principal, in ports.LicenseInput) (*domain.License, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.Key)
	if key == "" {
		if key, err = s.GenerateKey(ctx); err != nil {
			return nil, err
		}
	} else {
		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrLicenseKeyTaken
		}
	}

	now := s.opts.now().UTC()
	created, err := s.repo.Create(ctx, &domain.License{
		Key:           key,
		ProductName:   in.ProductName,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		IssueDate:     in.IssueDate,
		ExpiryDate:    in.ExpiryDate,
		Status:        in.Status,
		MaxUsers:      in.MaxUsers,
		Description:   in.Description,
		CreatedBy:     actor.Subject,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("license_id", created.ID).Str("license_key", created.Key).Str("actor", actor.Subject).Msg("license created")
	s.record("license.create", created.ID, actor.Subject, created.Key)
	return created, nil
}

func (s *LicenseService) Get(ctx context.Context, id string) (*domain.License, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LicenseService) GetByKey(ctx context.Context, key string) (*domain.License, error) {
	return s.repo.FindByKey(ctx, strings.TrimSpace(key))
}

func (s *LicenseService) ExistsByKey(ctx context.Context, key string) (bool, error) {
	return s.repo.ExistsByKey(ctx, strings.TrimSpace(key))
}

func (s *LicenseService) List(ctx context.Context) ([]*domain.License, error) {
	return s.repo.List(ctx, ports.LicenseFilter{})
}

// ListByCustomer matches the customer name case-insensitively. No match is
// reported as domain.ErrLicenseNotFound.
func (s *LicenseService) ListByCustomer(ctx context.Context, customerName string) ([]*domain.License, error) {
	return s.listNonEmpty(ctx, ports.LicenseFilter{CustomerName: strings.TrimSpace(customerName)})
}

// ListByProduct matches the product name case-insensitively. No match is
// reported as domain.ErrLicenseNotFound.
func (s *LicenseService) ListByProduct(ctx context.Context, productName string) ([]*domain.License, error) {
	return s.listNonEmpty(ctx, ports.LicenseFilter{ProductName: strings.TrimSpace(productName)})
}

func (s *LicenseService) listNonEmpty(ctx context.Context, f ports.LicenseFilter) ([]*domain.License, error) {
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrLicenseNotFound
	}
	return out, nil
}

func (s *LicenseService) ListByStatus(ctx context.Context, status domain.LicenseStatus) ([]*domain.License, error) {
	status, err := domain.ParseLicenseStatus(string(status))
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ports.LicenseFilter{Status: status})
}

// FindExpired returns licenses whose expiry date is on or before asOf. A zero
// asOf means today (UTC).
func (s *LicenseService) FindExpired(ctx context.Context, asOf time.Time) ([]*domain.License, error) {
	if asOf.IsZero() {
		asOf = s.opts.now()
	}
	return s.repo.List(ctx, ports.LicenseFilter{ExpiresTo: domain.DateOf(asOf)})
}

// ListExpiringBetween returns licenses expiring within [from, to].
func (s *LicenseService) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*domain.License, error) {
	if from.IsZero() || to.IsZero() {
		return nil, domain.NewValidationError("from", "from and to are required")
	}
	from, to = domain.DateOf(from), domain.DateOf(to)
	if to.Before(from) {
		return nil, domain.NewValidationError("to", "must not be before from")
	}
	return s.repo.List(ctx, ports.LicenseFilter{ExpiresFrom: from, ExpiresTo: to})
}

// Update replaces every writable field. The key, owner and seat counter are
// kept.
func (s *LicenseService) Update(ctx context.Context, actor ports.Principal, id string, in ports.LicenseInput) (*domain.License, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err = s.normalize(in)
	if err != nil {
		return nil, err
	}

	l.ProductName = in.ProductName
	l.CustomerName = in.CustomerName
	l.CustomerEmail = in.CustomerEmail
	l.IssueDate = in.IssueDate
	l.ExpiryDate = in.ExpiryDate
	l.Status = in.Status
	l.MaxUsers = in.MaxUsers
	l.Description = in.Description
	l.UpdatedAt = s.opts.now().UTC()

	updated, err := s.repo.Update(ctx, l)
	if err != nil {
		return nil, err
	}
	s.record("license.update", updated.ID, actor.Subject, updated.Key)
	return updated, nil
}

func (s *LicenseService) UpdateStatus(ctx context.Context, actor ports.Principal, id string, status domain.LicenseStatus) (*domain.License, error) {
	status, err := domain.ParseLicenseStatus(string(status))
	if err != nil {
		return nil, err
	}
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	l.Status = status
	l.UpdatedAt = s.opts.now().UTC()
	updated, err := s.repo.Update(ctx, l)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("license_id", updated.ID).Str("status", string(status)).Str("actor", actor.Subject).Msg("license status changed")
	s.record("license.status", updated.ID, actor.Subject, string(status))
	return updated, nil
}

// Delete removes the license permanently.
func (s *LicenseService) Delete(ctx context.Context, actor ports.Principal, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("license_id", id).Str("actor", actor.Subject).Msg("license deleted")
	s.record("license.delete", id, actor.Subject, "")
	return nil
}

// GenerateKey returns a key not yet present in the store.
func (s *LicenseService) GenerateKey(ctx context.Context) (string, error) {
	for range keyGenerateRetries {
		key := s.newKey()
		exists, err := s.repo.ExistsByKey(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
		s.logger.Warn().Str("license_key", key).Msg("generated license key collided, retrying")
	}
	return "", fmt.Errorf("generate license key: %w", domain.ErrLicenseKeyTaken)
}

func (s *LicenseService) CustomerNames(ctx context.Context) ([]string, error) {
	return s.repo.CustomerNames(ctx)
}

func (s *LicenseService) ProductNames(ctx context.Context) ([]string, error) {
	return s.repo.ProductNames(ctx)
}

// normalize trims text fields, applies defaults and validates the input.
func (s *LicenseService) normalize(in ports.LicenseInput) (ports.LicenseInput, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = normalizeEmail(in.CustomerEmail)
	in.Description = strings.TrimSpace(in.Description)

	verr := &domain.ValidationError{Fields: map[string]string{}}
	if in.ProductName == "" {
		verr.Fields["product_name"] = "is required"
	}
	if in.CustomerName == "" {
		verr.Fields["customer_name"] = "is required"
	}
	if in.CustomerEmail == "" {
		verr.Fields["customer_email"] = "is required"
	}
	if in.ExpiryDate.IsZero() {
		verr.Fields["expiry_date"] = "is required"
	}
	if in.MaxUsers != nil && *in.MaxUsers < 0 {
		verr.Fields["max_users"] = "must not be negative"
	}
	if in.Status == "" {
		in.Status = domain.LicenseActive
	} else if st, err := domain.ParseLicenseStatus(string(in.Status)); err != nil {
		verr.Fields["status"] = "must be one of ACTIVE EXPIRED REVOKED SUSPENDED"
	} else {
		in.Status = st
	}

	if in.IssueDate.IsZero() {
		in.IssueDate = s.opts.now()
	}
	in.IssueDate = domain.DateOf(in.IssueDate)
	if !in.ExpiryDate.IsZero() {
		in.ExpiryDate = domain.DateOf(in.ExpiryDate)
		if in.ExpiryDate.Before(in.IssueDate) {
			verr.Fields["expiry_date"] = "must not be before issue_date"
		}
	}

	if len(verr.Fields) > 0 {
		return in, verr
	}
	return in, nil
}

func (s *LicenseService) record(action, subject, actor, detail string) {
	s.opts.audit.Record(domain.AuditEvent{
		Service:   licensingService,
		Action:    action,
		SubjectID: subject,
		ActorID:   actor,
		Outcome:   "success",
		Detail:    detail,
		At:        s.opts.now().UTC(),
	})
}

// generateLicenseKey returns a key in the format LIC-XXXXXXXX.
func generateLicenseKey() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("%s%08X", licenseKeyPrefix, time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%s%08X", licenseKeyPrefix, b)
}
