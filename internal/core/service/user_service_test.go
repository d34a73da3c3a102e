package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

func newUserService(repo *stubUserRepo, opts ...Option) (*UserService, *stubTokens) {
	tokens := &stubTokens{}
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return NewUserService(repo, plainHasher{}, tokens, discardLogger, opts...), tokens
}

func register(t *testing.T, svc *UserService, name string, role domain.Role) *ports.RegistrationResult {
	t.Helper()
	res, err := svc.Register(context.Background(), ports.RegisterInput{
		Name:     name,
		Email:    strings.ToLower(name) + "@school.test",
		Password: "pass123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return res
}

// seedApproved stores an APPROVED identity directly, as an admin-created or
// seeded account would be.
func seedApproved(repo *stubUserRepo, id, name string, role domain.Role) *domain.User {
	return repo.put(&domain.User{
		ID:            id,
		Name:          name,
		Email:         id + "@school.test",
		PasswordHash:  "hashed:pass123",
		Role:          role,
		ApprovalState: domain.ApprovalApproved,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	})
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestUserService_Register_PendingWithRequiredApprover(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)

	res := register(t, svc, "Alice", domain.RoleStudent)

	if res.User.ApprovalState != domain.ApprovalPending {
		t.Errorf("expected PENDING, got %s", res.User.ApprovalState)
	}
	if res.RequiredApprover != domain.RoleClassTeacher {
		t.Errorf("expected CLASS_TEACHER approver, got %q", res.RequiredApprover)
	}
	if res.Message != "registration successful, awaiting approval by class teacher" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.User.ID == "" {
		t.Error("expected assigned id")
	}

	stored := repo.byID[res.User.ID]
	if stored.PasswordHash == "pass123" {
		t.Error("expected password to be hashed")
	}
	if !stored.CreatedAt.Equal(fixedNow) || !stored.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps not stamped: %v %v", stored.CreatedAt, stored.UpdatedAt)
	}
}

func TestUserService_Register_InitialStatePerRole(t *testing.T) {
	for _, role := range domain.Roles() {
		t.Run(string(role), func(t *testing.T) {
			svc, _ := newUserService(newStubUserRepo())
			res := register(t, svc, "X"+string(role), role)

			want := domain.ApprovalPending
			if role == domain.RoleAdmin {
				want = domain.ApprovalApproved
			}
			if res.User.ApprovalState != want {
				t.Errorf("role %s: expected %s, got %s", role, want, res.User.ApprovalState)
			}
		})
	}
}

func TestUserService_Register_AdminAutoApproved(t *testing.T) {
	svc, _ := newUserService(newStubUserRepo())

	res := register(t, svc, "Root", domain.RoleAdmin)

	if res.RequiredApprover != "" {
		t.Errorf("expected no required approver, got %q", res.RequiredApprover)
	}
	if res.Message != "registration successful and auto-approved as admin" {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	register(t, svc, "Alice", domain.RoleStudent)

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice Again", Email: "  ALICE@school.test ", Password: "other", Role: domain.RoleHOD,
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if n := repo.countEmail("alice@school.test"); n != 1 {
		t.Fatalf("expected exactly 1 identity with the email, got %d", n)
	}
}

// The unique constraint is the real guard when the pre-check races.
func TestUserService_Register_DuplicateCaughtByStore(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	register(t, svc, "Alice", domain.RoleStudent)

	repo.findErr = domain.ErrUserNotFound // pre-check misses the existing row
	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Name: "Alice", Email: "alice@school.test", Password: "x", Role: domain.RoleStudent,
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("expected 1 create, got %d", repo.creates)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	svc, _ := newUserService(newStubUserRepo())

	_, err := svc.Register(context.Background(), ports.RegisterInput{Role: "JANITOR"})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "password", "role"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected field error for %q", field)
		}
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestUserService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newUserService(repo)
	admin := register(t, svc, "Root", domain.RoleAdmin)

	res, err := svc.Login(context.Background(), "root@school.test", "pass123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.UserID != admin.User.ID || res.Role != "ADMIN" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Message != "login successful" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if got := tokens.issued[0]; got.Audience != ports.AudiencePortal || got.Subject != admin.User.ID {
		t.Errorf("unexpected token principal: %+v", got)
	}
}

func TestUserService_Login_Failures(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newUserService(repo)
	register(t, svc, "Alice", domain.RoleStudent) // pending
	register(t, svc, "Root", domain.RoleAdmin)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "ghost@school.test", "pass123", domain.ErrInvalidCredentials},
		{"wrong password", "root@school.test", "nope", domain.ErrInvalidCredentials},
		{"not approved", "alice@school.test", "pass123", domain.ErrNotApproved},
		{"empty", "", "", domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := repo.updates + repo.creates + repo.marks
			res, err := svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res != nil {
				t.Fatalf("expected no result, got %+v", res)
			}
			if after := repo.updates + repo.creates + repo.marks; after != before {
				t.Fatal("failed login must not modify the store")
			}
		})
	}
	if len(tokens.issued) != 0 {
		t.Fatalf("expected no tokens, got %d", len(tokens.issued))
	}
}

func TestUserService_Login_Throttled(t *testing.T) {
	repo := newStubUserRepo()
	throttle := newStubThrottle(2)
	svc, _ := newUserService(repo, WithLoginThrottle(throttle))
	register(t, svc, "Root", domain.RoleAdmin)

	for range 2 {
		if _, err := svc.Login(context.Background(), "root@school.test", "bad"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, err := svc.Login(context.Background(), "root@school.test", "pass123"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestUserService_Login_SuccessResetsThrottle(t *testing.T) {
	repo := newStubUserRepo()
	throttle := newStubThrottle(3)
	svc, _ := newUserService(repo, WithLoginThrottle(throttle))
	register(t, svc, "Root", domain.RoleAdmin)

	_, _ = svc.Login(context.Background(), "root@school.test", "bad")
	if _, err := svc.Login(context.Background(), "root@school.test", "pass123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if n := throttle.failures["portal:root@school.test"]; n != 0 {
		t.Fatalf("expected counter reset, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// Approve
// ---------------------------------------------------------------------------

func TestUserService_Approve_Scenario(t *testing.T) {
	repo := newStubUserRepo()
	audit := &recordingAudit{}
	svc, _ := newUserService(repo, WithAuditSink(audit))
	ctx := context.Background()

	alice := register(t, svc, "Alice", domain.RoleStudent)
	if alice.RequiredApprover != domain.RoleClassTeacher {
		t.Fatalf("Alice approver = %q", alice.RequiredApprover)
	}
	bob := register(t, svc, "Bob", domain.RoleClassTeacher)
	if bob.User.ApprovalState != domain.ApprovalPending || bob.RequiredApprover != domain.RoleHOD {
		t.Fatalf("Bob = %+v", bob)
	}

	// A HOD may not approve a STUDENT.
	carl := seedApproved(repo, "carl", "Carl", domain.RoleHOD)
	res, err := svc.Approve(ctx, alice.User.ID, carl.ID)
	if !errors.Is(err, domain.ErrApprovalDenied) {
		t.Fatalf("expected ErrApprovalDenied, got %v", err)
	}
	if res.Outcome != ports.ApprovalOutcomeDenied || res.User.ApprovalState != domain.ApprovalPending {
		t.Fatalf("unexpected denied result: %+v", res)
	}
	if repo.byID[alice.User.ID].ApprovalState != domain.ApprovalPending {
		t.Fatal("Alice must still be PENDING")
	}

	// Carl approves Bob, then Bob approves Alice.
	if res, err := svc.Approve(ctx, bob.User.ID, carl.ID); err != nil || res.Outcome != ports.ApprovalOutcomeApproved {
		t.Fatalf("approve Bob: %+v %v", res, err)
	}
	res, err = svc.Approve(ctx, alice.User.ID, bob.User.ID)
	if err != nil {
		t.Fatalf("approve Alice: %v", err)
	}
	if res.Outcome != ports.ApprovalOutcomeApproved || res.Message != "user approved successfully" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.User.ApprovedBy != bob.User.ID || res.User.ApproverName != "Bob" {
		t.Fatalf("unexpected approver: %q %q", res.User.ApprovedBy, res.User.ApproverName)
	}
	stored := repo.byID[alice.User.ID]
	if stored.ApprovalState != domain.ApprovalApproved || stored.ApprovedBy != bob.User.ID {
		t.Fatalf("stored Alice = %+v", stored)
	}
	if !stored.UpdatedAt.Equal(fixedNow) {
		t.Errorf("updated_at not stamped: %v", stored.UpdatedAt)
	}

	if got := audit.outcomes("approve"); len(got) != 3 || got[0] != "denied" || got[2] != "approved" {
		t.Errorf("unexpected audit outcomes: %v", got)
	}
}

// Every (target, approver) pair: success iff the approver holds the required
// role or is ADMIN.
func TestUserService_Approve_PermissionGrid(t *testing.T) {
	for _, target := range domain.Roles() {
		for _, approverRole := range domain.Roles() {
			t.Run(string(target)+"_by_"+string(approverRole), func(t *testing.T) {
				repo := newStubUserRepo()
				svc, _ := newUserService(repo)
				repo.put(&domain.User{ID: "t", Name: "T", Email: "t@x", Role: target, ApprovalState: domain.ApprovalPending})
				seedApproved(repo, "a", "A", approverRole)

				res, err := svc.Approve(context.Background(), "t", "a")

				required, _ := domain.RequiredApprover(target)
				allowed := approverRole == domain.RoleAdmin || approverRole == required
				if allowed {
					if err != nil || res.Outcome != ports.ApprovalOutcomeApproved {
						t.Fatalf("expected approval, got %+v %v", res, err)
					}
				} else {
					if !errors.Is(err, domain.ErrApprovalDenied) {
						t.Fatalf("expected denial, got %+v %v", res, err)
					}
					if repo.byID["t"].ApprovalState != domain.ApprovalPending {
						t.Fatal("denied approval mutated the target")
					}
				}
			})
		}
	}
}

func TestUserService_Approve_NotPendingIsNoop(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	first := seedApproved(repo, "t1", "First", domain.RoleClassTeacher)
	seedApproved(repo, "hod", "Hod", domain.RoleHOD)
	repo.byID["t1"].ApprovedBy = "someone"

	res, err := svc.Approve(context.Background(), first.ID, "hod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.ApprovalOutcomeNotPending || res.Message != "user is not pending approval" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if repo.byID["t1"].ApprovedBy != "someone" || repo.marks != 0 {
		t.Fatal("not-pending approval must not mutate the target")
	}
}

func TestUserService_Approve_LostRaceReportsNotPending(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	repo.put(&domain.User{ID: "s", Name: "S", Email: "s@x", Role: domain.RoleStudent, ApprovalState: domain.ApprovalPending})
	seedApproved(repo, "ct", "Teacher", domain.RoleClassTeacher)

	// Another approver wins between the read and the conditional write.
	repo.markHook = func() {
		repo.mu.Lock()
		repo.byID["s"].ApprovalState = domain.ApprovalApproved
		repo.byID["s"].ApprovedBy = "other"
		repo.mu.Unlock()
	}

	res, err := svc.Approve(context.Background(), "s", "ct")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != ports.ApprovalOutcomeNotPending || res.User.ApprovedBy != "other" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUserService_Approve_ConcurrentExactlyOneWins(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	repo.put(&domain.User{ID: "s", Name: "S", Email: "s@x", Role: domain.RoleStudent, ApprovalState: domain.ApprovalPending})
	seedApproved(repo, "ct", "Teacher", domain.RoleClassTeacher)
	seedApproved(repo, "admin", "Admin", domain.RoleAdmin)

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[ports.ApprovalOutcome]int{}
	)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			approver := "ct"
			if i%2 == 0 {
				approver = "admin"
			}
			res, err := svc.Approve(context.Background(), "s", approver)
			if err != nil {
				t.Errorf("approve: %v", err)
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if outcomes[ports.ApprovalOutcomeApproved] != 1 {
		t.Fatalf("expected exactly one approval, got %v", outcomes)
	}
	if outcomes[ports.ApprovalOutcomeNotPending] != n-1 {
		t.Fatalf("expected %d not_pending, got %v", n-1, outcomes)
	}
	if repo.marks != 1 {
		t.Fatalf("expected one write, got %d", repo.marks)
	}
}

func TestUserService_Approve_NotFound(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	seedApproved(repo, "admin", "Admin", domain.RoleAdmin)

	if _, err := svc.Approve(context.Background(), "missing", "admin"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.Approve(context.Background(), "admin", "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Pending queue and role-scoped CRUD
// ---------------------------------------------------------------------------

func TestUserService_ListPending(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	register(t, svc, "Alice", domain.RoleStudent)
	register(t, svc, "Bob", domain.RoleClassTeacher)
	register(t, svc, "Hal", domain.RoleHOD)

	got, err := svc.ListPending(context.Background(), domain.RoleClassTeacher)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alice" {
		t.Fatalf("class teacher queue = %+v", got)
	}

	all, _ := svc.ListPending(context.Background(), domain.RoleAdmin)
	if len(all) != 3 {
		t.Fatalf("admin queue has %d entries, want 3", len(all))
	}

	none, _ := svc.ListPending(context.Background(), domain.RoleStudent)
	if none == nil || len(none) != 0 {
		t.Fatalf("student queue = %+v", none)
	}
}

func TestUserService_GetByRole_HidesOtherRoles(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	alice := register(t, svc, "Alice", domain.RoleStudent)

	if _, err := svc.GetByRole(context.Background(), domain.RoleHOD, alice.User.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	got, err := svc.GetByRole(context.Background(), domain.RoleStudent, alice.User.ID)
	if err != nil || got.Email != "alice@school.test" {
		t.Fatalf("get = %+v %v", got, err)
	}
}

func TestUserService_GetByRole_ResolvesApproverName(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	seedApproved(repo, "ct", "Teacher", domain.RoleClassTeacher)
	repo.put(&domain.User{ID: "s", Name: "S", Email: "s@x", Role: domain.RoleStudent, ApprovalState: domain.ApprovalApproved, ApprovedBy: "ct"})

	got, err := svc.GetByRole(context.Background(), domain.RoleStudent, "s")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ApproverName != "Teacher" {
		t.Fatalf("approver name = %q", got.ApproverName)
	}
}

func TestUserService_UpdateByRole(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	alice := register(t, svc, "Alice", domain.RoleStudent)

	got, err := svc.UpdateByRole(context.Background(), domain.RoleStudent, alice.User.ID, ports.UserUpdate{
		Name: "Alice Liddell", Email: "ALICE.L@school.test", ClassOrDepartment: "10-B",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Alice Liddell" || got.Email != "alice.l@school.test" || got.ClassOrDepartment != "10-B" {
		t.Fatalf("update = %+v", got)
	}
	if got.ApprovalState != domain.ApprovalPending || got.Role != domain.RoleStudent {
		t.Fatal("update must not change role or approval state")
	}
}

func TestUserService_UpdateByRole_EmailTaken(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	alice := register(t, svc, "Alice", domain.RoleStudent)
	register(t, svc, "Bob", domain.RoleStudent)

	_, err := svc.UpdateByRole(context.Background(), domain.RoleStudent, alice.User.ID, ports.UserUpdate{
		Name: "Alice", Email: "bob@school.test",
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserService_PatchByRole_OnlyPresentFields(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	alice := register(t, svc, "Alice", domain.RoleStudent)

	dept := "Physics"
	got, err := svc.PatchByRole(context.Background(), domain.RoleStudent, alice.User.ID, ports.UserPatch{ClassOrDepartment: &dept})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if got.ClassOrDepartment != "Physics" || got.Name != "Alice" || got.Email != "alice@school.test" {
		t.Fatalf("patch = %+v", got)
	}

	empty := " "
	if _, err := svc.PatchByRole(context.Background(), domain.RoleStudent, alice.User.ID, ports.UserPatch{Name: &empty}); err == nil {
		t.Fatal("expected validation error for empty name")
	}
}

func TestUserService_DeleteByRole(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newUserService(repo)
	alice := register(t, svc, "Alice", domain.RoleStudent)

	if err := svc.DeleteByRole(context.Background(), domain.RoleHOD, alice.User.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.DeleteByRole(context.Background(), domain.RoleStudent, alice.User.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.byID[alice.User.ID]; ok {
		t.Fatal("user still stored")
	}
}
