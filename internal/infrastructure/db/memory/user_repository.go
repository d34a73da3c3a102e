package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// UserRepository is a thread-safe in-process portal credential store.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string // email -> id
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return nil, domain.ErrEmailTaken
	}
	c := cloneUser(user)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.byID[c.ID] = c
	r.byEmail[c.Email] = c.ID
	return cloneUser(c), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UserRepository) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	return r.list(func(u *domain.User) bool { return u.Role == role }), nil
}

func (r *UserRepository) ListPending(_ context.Context, roles []domain.Role) ([]*domain.User, error) {
	want := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		want[role] = true
	}
	return r.list(func(u *domain.User) bool {
		return u.ApprovalState == domain.ApprovalPending && want[u.Role]
	}), nil
}

// list returns matching users oldest first.
func (r *UserRepository) list(match func(*domain.User) bool) []*domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.User{}
	for _, u := range r.byID {
		if match(u) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if user.Email != cur.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return nil, domain.ErrEmailTaken
		}
		delete(r.byEmail, cur.Email)
		r.byEmail[user.Email] = cur.ID
	}
	cur.Name = user.Name
	cur.Email = user.Email
	cur.ClassOrDepartment = user.ClassOrDepartment
	cur.UpdatedAt = user.UpdatedAt
	return cloneUser(cur), nil
}

// MarkApproved checks and transitions the state under the write lock.
func (r *UserRepository) MarkApproved(_ context.Context, id, approverID string, at time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.ApprovalState != domain.ApprovalPending {
		return nil, domain.ErrNotPending
	}
	u.ApprovalState = domain.ApprovalApproved
	u.ApprovedBy = approverID
	u.UpdatedAt = at
	return cloneUser(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *UserRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
