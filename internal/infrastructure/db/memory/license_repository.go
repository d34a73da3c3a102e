package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// LicenseRepository is a thread-safe in-process license store.
type LicenseRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.License
	byKey map[string]string // key -> id
}

func NewLicenseRepository() *LicenseRepository {
	return &LicenseRepository{
		byID:  make(map[string]*domain.License),
		byKey: make(map[string]string),
	}
}

func cloneLicense(l *domain.License) *domain.License {
	c := *l
	if l.MaxUsers != nil {
		n := *l.MaxUsers
		c.MaxUsers = &n
	}
	return &c
}

func (r *LicenseRepository) Create(_ context.Context, l *domain.License) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byKey[l.Key]; taken {
		return nil, domain.ErrLicenseKeyTaken
	}
	c := cloneLicense(l)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.byID[c.ID] = c
	r.byKey[c.Key] = c.ID
	return cloneLicense(c), nil
}

func (r *LicenseRepository) FindByID(_ context.Context, id string) (*domain.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	return cloneLicense(l), nil
}

func (r *LicenseRepository) FindByKey(_ context.Context, key string) (*domain.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	return cloneLicense(r.byID[id]), nil
}

func (r *LicenseRepository) ExistsByKey(_ context.Context, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byKey[key]
	return ok, nil
}

func (r *LicenseRepository) List(_ context.Context, f ports.LicenseFilter) ([]*domain.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.License{}
	for _, l := range r.byID {
		if matches(l, f) {
			out = append(out, cloneLicense(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func matches(l *domain.License, f ports.LicenseFilter) bool {
	switch {
	case f.Status != "" && l.Status != f.Status:
		return false
	case f.CustomerName != "" && !strings.EqualFold(l.CustomerName, f.CustomerName):
		return false
	case f.ProductName != "" && !strings.EqualFold(l.ProductName, f.ProductName):
		return false
	case !f.ExpiresFrom.IsZero() && l.ExpiryDate.Before(f.ExpiresFrom):
		return false
	case !f.ExpiresTo.IsZero() && l.ExpiryDate.After(f.ExpiresTo):
		return false
	}
	return true
}

func (r *LicenseRepository) Update(_ context.Context, l *domain.License) (*domain.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[l.ID]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	c := cloneLicense(l)
	c.Key = cur.Key
	c.CreatedBy = cur.CreatedBy
	c.CreatedAt = cur.CreatedAt
	r.byID[c.ID] = c
	return cloneLicense(c), nil
}

func (r *LicenseRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return domain.ErrLicenseNotFound
	}
	delete(r.byKey, l.Key)
	delete(r.byID, id)
	return nil
}

func (r *LicenseRepository) CustomerNames(context.Context) ([]string, error) {
	return r.distinct(func(l *domain.License) string { return l.CustomerName }), nil
}

func (r *LicenseRepository) ProductNames(context.Context) ([]string, error) {
	return r.distinct(func(l *domain.License) string { return l.ProductName }), nil
}

func (r *LicenseRepository) distinct(field func(*domain.License) string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, l := range r.byID {
		if v := field(l); !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
