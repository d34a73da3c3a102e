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

const licensingService = "licensing"

const (
	msgAccountRegistered = "user registered successfully"
)

// AccountService implements licensing account registration and login.
type AccountService struct {
	repo   ports.AccountRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	logger zerolog.Logger
	opts   options
}

func NewAccountService(repo ports.AccountRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger, opts ...Option) *AccountService {
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Register creates an ACTIVE account and returns a token for it right away.
// An empty role registers a USER.
func (s *AccountService) Register(ctx context.Context, in ports.AccountRegisterInput) (*ports.AccountAuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	verr := &domain.ValidationError{Fields: map[string]string{}}
	if in.Username == "" {
		verr.Fields["username"] = "is required"
	}
	if in.Email == "" {
		verr.Fields["email"] = "is required"
	}
	if in.Password == "" {
		verr.Fields["password"] = "is required"
	}
	if in.Role == "" {
		in.Role = domain.AccountUser
	} else if r, err := domain.ParseAccountRole(string(in.Role)); err != nil {
		verr.Fields["role"] = "must be one of ADMIN MANAGER USER"
	} else {
		in.Role = r
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.opts.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", created.ID).Str("username", created.Username).Str("role", string(created.Role)).Msg("account registered")
	s.record("register", created.ID, created.ID, "success")
	return s.authResult(created, msgAccountRegistered)
}

// Login authenticates an ACTIVE account by username.
func (s *AccountService) Login(ctx context.Context, username, password string) (*ports.AccountAuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	throttleKey := licensingService + ":" + strings.ToLower(username)
	allowed, err := s.opts.throttle.Allow(ctx, throttleKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("login throttle unavailable")
	} else if !allowed {
		s.record("login", "", "", "throttled")
		return nil, domain.ErrTooManyAttempts
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	hash := ""
	if account != nil {
		hash = account.PasswordHash
	}
	if s.hasher.Compare(hash, password) != nil {
		if err := s.opts.throttle.Fail(ctx, throttleKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to count login failure")
		}
		subject := ""
		if account != nil {
			subject = account.ID
		}
		s.record("login", subject, subject, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if account.Status != domain.AccountActive {
		s.record("login", account.ID, account.ID, "inactive")
		return nil, domain.ErrAccountInactive
	}

	if err := s.opts.throttle.Reset(ctx, throttleKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset login throttle")
	}
	s.record("login", account.ID, account.ID, "success")
	return s.authResult(account, msgLoginSuccessful)
}

func (s *AccountService) authResult(a *domain.Account, msg string) (*ports.AccountAuthResult, error) {
	token, exp, err := s.tokens.Issue(ports.Principal{
		Subject:  a.ID,
		Role:     string(a.Role),
		Email:    a.Email,
		Audience: ports.AudienceLicensing,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AccountAuthResult{
		Token:     token,
		ExpiresAt: exp,
		Username:  a.Username,
		Role:      a.Role,
		Message:   msg,
	}, nil
}

func (s *AccountService) record(action, subject, actor, outcome string) {
	s.opts.audit.Record(domain.AuditEvent{
		Service:   licensingService,
		Action:    action,
		SubjectID: subject,
		ActorID:   actor,
		Outcome:   outcome,
		At:        s.opts.now().UTC(),
	})
}
