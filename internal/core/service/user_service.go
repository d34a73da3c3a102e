package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

const portalService = "portal"

const (
	msgAwaitingApproval = "registration successful, awaiting approval by %s"
	msgAutoApproved     = "registration successful and auto-approved as %s"
	msgLoginSuccessful  = "login successful"
	msgApproved         = "user approved successfully"
	msgNotPending       = "user is not pending approval"
)

// UserService implements the portal use cases: registration along the role
// hierarchy, approval, login and role-scoped profile management.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	logger zerolog.Logger
	opts   options
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger, opts ...Option) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Register creates a new identity whose initial approval state follows the
// role hierarchy. A duplicate email yields domain.ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.ClassOrDepartment = strings.TrimSpace(in.ClassOrDepartment)

	verr := &domain.ValidationError{Fields: map[string]string{}}
	if in.Name == "" {
		verr.Fields["name"] = "is required"
	}
	if in.Email == "" {
		verr.Fields["email"] = "is required"
	}
	if in.Password == "" {
		verr.Fields["password"] = "is required"
	}
	if !in.Role.Valid() {
		verr.Fields["role"] = "must be one of STUDENT CLASS_TEACHER HOD PRINCIPAL ADMIN"
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.opts.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:              in.Name,
		Email:             in.Email,
		PasswordHash:      hash,
		Role:              in.Role,
		ApprovalState:     domain.InitialApprovalState(in.Role),
		ClassOrDepartment: in.ClassOrDepartment,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		// The unique index catches a concurrent registration the pre-check missed.
		if !errors.Is(err, domain.ErrEmailTaken) {
			s.logger.Error().Err(err).Str("email", in.Email).Msg("failed to create user")
		}
		return nil, err
	}

	res := &ports.RegistrationResult{User: userView(created, "")}
	if approver, ok := domain.RequiredApprover(created.Role); ok {
		res.RequiredApprover = approver
		res.Message = fmt.Sprintf(msgAwaitingApproval, approver.Label())
	} else {
		res.Message = fmt.Sprintf(msgAutoApproved, created.Role.Label())
	}

	s.logger.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Str("state", string(created.ApprovalState)).Msg("user registered")
	s.record("register", created.ID, created.ID, string(created.ApprovalState), "")
	return res, nil
}

// Login authenticates an approved identity and issues a bearer token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	throttleKey := portalService + ":" + email
	allowed, err := s.opts.throttle.Allow(ctx, throttleKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login throttle unavailable")
	} else if !allowed {
		s.record("login", "", "", "throttled", email)
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if s.hasher.Compare(hash, password) != nil {
		s.failLogin(ctx, throttleKey, user)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsApproved() {
		s.record("login", user.ID, user.ID, "not_approved", string(user.ApprovalState))
		return nil, domain.ErrNotApproved
	}

	token, exp, err := s.tokens.Issue(ports.Principal{
		Subject:  user.ID,
		Role:     string(user.Role),
		Email:    user.Email,
		Audience: ports.AudiencePortal,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.opts.throttle.Reset(ctx, throttleKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset login throttle")
	}
	s.record("login", user.ID, user.ID, "success", "")

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: exp,
		UserID:    user.ID,
		Role:      string(user.Role),
		Message:   msgLoginSuccessful,
	}, nil
}

func (s *UserService) failLogin(ctx context.Context, key string, user *domain.User) {
	if err := s.opts.throttle.Fail(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to count login failure")
	}
	subject := ""
	if user != nil {
		subject = user.ID
	}
	s.record("login", subject, subject, "invalid_credentials", "")
}

// Approve moves a PENDING target to APPROVED when the approver's role permits
// it. Of several concurrent approvals of the same target exactly one reports
// approved; the others report not_pending.
func (s *UserService) Approve(ctx context.Context, targetID, approverID string) (*ports.ApprovalResult, error) {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	approver, err := s.repo.FindByID(ctx, approverID)
	if err != nil {
		return nil, err
	}

	if !domain.CanApprove(target.Role, approver.Role) {
		s.logger.Warn().Str("target_id", target.ID).Str("approver_id", approver.ID).Str("approver_role", string(approver.Role)).Msg("approval denied")
		s.record("approve", target.ID, approver.ID, string(ports.ApprovalOutcomeDenied), string(approver.Role))
		return &ports.ApprovalResult{
			User:    s.view(ctx, target),
			Outcome: ports.ApprovalOutcomeDenied,
			Message: domain.ErrApprovalDenied.Error(),
		}, domain.ErrApprovalDenied
	}

	if target.ApprovalState != domain.ApprovalPending {
		return s.notPending(ctx, target, approver.ID), nil
	}

	updated, err := s.repo.MarkApproved(ctx, target.ID, approver.ID, s.opts.now().UTC())
	if errors.Is(err, domain.ErrNotPending) {
		current, ferr := s.repo.FindByID(ctx, target.ID)
		if ferr != nil {
			return nil, ferr
		}
		return s.notPending(ctx, current, approver.ID), nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("target_id", target.ID).Msg("failed to approve user")
		return nil, err
	}

	s.logger.Info().Str("target_id", updated.ID).Str("approver_id", approver.ID).Msg("user approved")
	s.record("approve", updated.ID, approver.ID, string(ports.ApprovalOutcomeApproved), "")

	return &ports.ApprovalResult{
		User:    userView(updated, approver.Name),
		Outcome: ports.ApprovalOutcomeApproved,
		Message: msgApproved,
	}, nil
}

func (s *UserService) notPending(ctx context.Context, target *domain.User, approverID string) *ports.ApprovalResult {
	s.record("approve", target.ID, approverID, string(ports.ApprovalOutcomeNotPending), string(target.ApprovalState))
	return &ports.ApprovalResult{
		User:    s.view(ctx, target),
		Outcome: ports.ApprovalOutcomeNotPending,
		Message: msgNotPending,
	}
}

// ListPending returns the PENDING users an approver of approverRole may approve.
func (s *UserService) ListPending(ctx context.Context, approverRole domain.Role) ([]ports.UserView, error) {
	roles := domain.ApprovableBy(approverRole)
	if len(roles) == 0 {
		return []ports.UserView{}, nil
	}
	users, err := s.repo.ListPending(ctx, roles)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, users), nil
}

func (s *UserService) ListByRole(ctx context.Context, role domain.Role) ([]ports.UserView, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, users), nil
}

func (s *UserService) GetByRole(ctx context.Context, role domain.Role, id string) (*ports.UserView, error) {
	u, err := s.findByRole(ctx, role, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, u)
	return &v, nil
}

// UpdateByRole replaces every mutable profile field. Role and approval state
// are not writable.
func (s *UserService) UpdateByRole(ctx context.Context, role domain.Role, id string, in ports.UserUpdate) (*ports.UserView, error) {
	u, err := s.findByRole(ctx, role, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	verr := &domain.ValidationError{Fields: map[string]string{}}
	if name == "" {
		verr.Fields["name"] = "is required"
	}
	if email == "" {
		verr.Fields["email"] = "is required"
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	u.Name = name
	u.ClassOrDepartment = strings.TrimSpace(in.ClassOrDepartment)
	return s.save(ctx, u, email)
}

// PatchByRole applies only the fields present in the patch.
func (s *UserService) PatchByRole(ctx context.Context, role domain.Role, id string, in ports.UserPatch) (*ports.UserView, error) {
	u, err := s.findByRole(ctx, role, id)
	if err != nil {
		return nil, err
	}

	email := u.Email
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be empty")
		}
		u.Name = name
	}
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if email == "" {
			return nil, domain.NewValidationError("email", "must not be empty")
		}
	}
	if in.ClassOrDepartment != nil {
		u.ClassOrDepartment = strings.TrimSpace(*in.ClassOrDepartment)
	}
	return s.save(ctx, u, email)
}

func (s *UserService) DeleteByRole(ctx context.Context, role domain.Role, id string) error {
	u, err := s.findByRole(ctx, role, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user deleted")
	s.record("delete", u.ID, "", "success", string(u.Role))
	return nil
}

func (s *UserService) save(ctx context.Context, u *domain.User, email string) (*ports.UserView, error) {
	if email != u.Email {
		existing, err := s.repo.FindByEmail(ctx, email)
		if err == nil && existing.ID != u.ID {
			return nil, domain.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		u.Email = email
	}
	u.UpdatedAt = s.opts.now().UTC()

	updated, err := s.repo.Update(ctx, u)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, updated)
	return &v, nil
}

// findByRole hides users of other roles behind ErrUserNotFound.
func (s *UserService) findByRole(ctx context.Context, role domain.Role, id string) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserService) view(ctx context.Context, u *domain.User) ports.UserView {
	return s.views(ctx, []*domain.User{u})[0]
}

// views projects users, resolving each distinct approver name once.
func (s *UserService) views(ctx context.Context, users []*domain.User) []ports.UserView {
	names := make(map[string]string)
	out := make([]ports.UserView, 0, len(users))
	for _, u := range users {
		name := ""
		if u.ApprovedBy != "" {
			var ok bool
			if name, ok = names[u.ApprovedBy]; !ok {
				if approver, err := s.repo.FindByID(ctx, u.ApprovedBy); err == nil {
					name = approver.Name
				}
				names[u.ApprovedBy] = name
			}
		}
		out = append(out, userView(u, name))
	}
	return out
}

func (s *UserService) record(action, subject, actor, outcome, detail string) {
	s.opts.audit.Record(domain.AuditEvent{
		Service:   portalService,
		Action:    action,
		SubjectID: subject,
		ActorID:   actor,
		Outcome:   outcome,
		Detail:    detail,
		At:        s.opts.now().UTC(),
	})
}

func userView(u *domain.User, approverName string) ports.UserView {
	return ports.UserView{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		ApprovalState:     u.ApprovalState,
		ClassOrDepartment: u.ClassOrDepartment,
		ApprovedBy:        u.ApprovedBy,
		ApproverName:      approverName,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
