package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	seq      int
	creates  int
	updates  int
	marks    int
	findErr  error // if set, FindByEmail returns this error
	markHook func() // runs inside MarkApproved before the state check
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	r.creates++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("u%d", r.seq)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

// put stores u as-is, bypassing the service (seeded identities).
func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) ListPending(_ context.Context, roles []domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if u.ApprovalState != domain.ApprovalPending {
			continue
		}
		for _, role := range roles {
			if u.Role == role {
				out = append(out, cloneUser(u))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[user.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	r.updates++
	cur.Name = user.Name
	cur.Email = user.Email
	cur.ClassOrDepartment = user.ClassOrDepartment
	cur.UpdatedAt = user.UpdatedAt
	return cloneUser(cur), nil
}

func (r *stubUserRepo) MarkApproved(_ context.Context, id, approverID string, at time.Time) (*domain.User, error) {
	if r.markHook != nil {
		r.markHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.ApprovalState != domain.ApprovalPending {
		return nil, domain.ErrNotPending
	}
	r.marks++
	u.ApprovalState = domain.ApprovalApproved
	u.ApprovedBy = approverID
	u.UpdatedAt = at
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *stubUserRepo) countEmail(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

type stubAccountRepo struct {
	byID map[string]*domain.Account
	seq  int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	for _, cur := range r.byID {
		if cur.Username == a.Username {
			return nil, domain.ErrUsernameTaken
		}
		if cur.Email == a.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	c := *a
	c.ID = fmt.Sprintf("a%d", r.seq)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	for _, a := range r.byID {
		if a.Username == username {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.byID {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Count(context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

type stubLicenseRepo struct {
	byID      map[string]*domain.License
	seq       int
	createErr error // if set, Create returns this error
}

func newStubLicenseRepo() *stubLicenseRepo {
	return &stubLicenseRepo{byID: make(map[string]*domain.License)}
}

func (r *stubLicenseRepo) Create(_ context.Context, l *domain.License) (*domain.License, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, cur := range r.byID {
		if cur.Key == l.Key {
			return nil, domain.ErrLicenseKeyTaken
		}
	}
	r.seq++
	c := *l
	c.ID = fmt.Sprintf("l%d", r.seq)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubLicenseRepo) FindByID(_ context.Context, id string) (*domain.License, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLicenseNotFound
	}
	c := *l
	return &c, nil
}

func (r *stubLicenseRepo) FindByKey(_ context.Context, key string) (*domain.License, error) {
	for _, l := range r.byID {
		if l.Key == key {
			c := *l
			return &c, nil
		}
	}
	return nil, domain.ErrLicenseNotFound
}

func (r *stubLicenseRepo) ExistsByKey(ctx context.Context, key string) (bool, error) {
	_, err := r.FindByKey(ctx, key)
	return err == nil, nil
}

// List applies the same filters the real repositories use.
func (r *stubLicenseRepo) List(_ context.Context, f ports.LicenseFilter) ([]*domain.License, error) {
	out := []*domain.License{}
	for _, l := range r.byID {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.CustomerName != "" && !strings.EqualFold(l.CustomerName, f.CustomerName) {
			continue
		}
		if f.ProductName != "" && !strings.EqualFold(l.ProductName, f.ProductName) {
			continue
		}
		if !f.ExpiresFrom.IsZero() && l.ExpiryDate.Before(f.ExpiresFrom) {
			continue
		}
		if !f.ExpiresTo.IsZero() && l.ExpiryDate.After(f.ExpiresTo) {
			continue
		}
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r *stubLicenseRepo) Update(_ context.Context, l *domain.License) (*domain.License, error) {
	if _, ok := r.byID[l.ID]; !ok {
		return nil, domain.ErrLicenseNotFound
	}
	c := *l
	r.byID[l.ID] = &c
	out := c
	return &out, nil
}

func (r *stubLicenseRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrLicenseNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubLicenseRepo) CustomerNames(context.Context) ([]string, error) {
	return r.distinct(func(l *domain.License) string { return l.CustomerName }), nil
}

func (r *stubLicenseRepo) ProductNames(context.Context) ([]string, error) {
	return r.distinct(func(l *domain.License) string { return l.ProductName }), nil
}

func (r *stubLicenseRepo) distinct(field func(*domain.License) string) []string {
	seen := map[string]bool{}
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

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

// plainHasher keeps tests fast; the bcrypt hasher is tested in pkg/security.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash == "" || hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type stubTokens struct {
	issued []ports.Principal
}

func (s *stubTokens) Issue(p ports.Principal) (string, time.Time, error) {
	s.issued = append(s.issued, p)
	return "token-" + p.Subject, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type stubThrottle struct {
	limit    int
	failures map[string]int
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{limit: limit, failures: map[string]int{}}
}

func (t *stubThrottle) Allow(_ context.Context, key string) (bool, error) {
	return t.failures[key] < t.limit, nil
}

func (t *stubThrottle) Fail(_ context.Context, key string) error {
	t.failures[key]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	delete(t.failures, key)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) outcomes(action string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.events {
		if e.Action == action {
			out = append(out, e.Outcome)
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
