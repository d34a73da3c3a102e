package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// AccountRepository is a thread-safe in-process licensing credential store.
type AccountRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{byID: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cur := range r.byID {
		if strings.EqualFold(cur.Username, account.Username) {
			return nil, domain.ErrUsernameTaken
		}
		if cur.Email == account.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	c := cloneAccount(account)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.byID[c.ID] = c
	return cloneAccount(c), nil
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *AccountRepository) find(match func(*domain.Account) bool) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
