package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/api/middleware"
	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

var stamp = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withPrincipal(c echo.Context, subject, role string) {
	c.Set(middleware.PrincipalKey, ports.Principal{Subject: subject, Role: role})
}

// --- portal ---

type stubUserService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	approveFn  func(ctx context.Context, targetID, approverID string) (*ports.ApprovalResult, error)
	pendingFn  func(ctx context.Context, role domain.Role) ([]ports.UserView, error)
	listFn     func(ctx context.Context, role domain.Role) ([]ports.UserView, error)
	getFn      func(ctx context.Context, role domain.Role, id string) (*ports.UserView, error)
	updateFn   func(ctx context.Context, role domain.Role, id string, in ports.UserUpdate) (*ports.UserView, error)
	patchFn    func(ctx context.Context, role domain.Role, id string, in ports.UserPatch) (*ports.UserView, error)
	deleteFn   func(ctx context.Context, role domain.Role, id string) error
}

func (s *stubUserService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegistrationResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubUserService) Approve(ctx context.Context, targetID, approverID string) (*ports.ApprovalResult, error) {
	return s.approveFn(ctx, targetID, approverID)
}

func (s *stubUserService) ListPending(ctx context.Context, role domain.Role) ([]ports.UserView, error) {
	return s.pendingFn(ctx, role)
}

func (s *stubUserService) ListByRole(ctx context.Context, role domain.Role) ([]ports.UserView, error) {
	return s.listFn(ctx, role)
}

func (s *stubUserService) GetByRole(ctx context.Context, role domain.Role, id string) (*ports.UserView, error) {
	return s.getFn(ctx, role, id)
}

func (s *stubUserService) UpdateByRole(ctx context.Context, role domain.Role, id string, in ports.UserUpdate) (*ports.UserView, error) {
	return s.updateFn(ctx, role, id, in)
}

func (s *stubUserService) PatchByRole(ctx context.Context, role domain.Role, id string, in ports.UserPatch) (*ports.UserView, error) {
	return s.patchFn(ctx, role, id, in)
}

func (s *stubUserService) DeleteByRole(ctx context.Context, role domain.Role, id string) error {
	return s.deleteFn(ctx, role, id)
}

// --- licensing ---

type stubAccountService struct {
	registerFn func(ctx context.Context, in ports.AccountRegisterInput) (*ports.AccountAuthResult, error)
	loginFn    func(ctx context.Context, username, password string) (*ports.AccountAuthResult, error)
}

func (s *stubAccountService) Register(ctx context.Context, in ports.AccountRegisterInput) (*ports.AccountAuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) Login(ctx context.Context, username, password string) (*ports.AccountAuthResult, error) {
	return s.loginFn(ctx, username, password)
}

// stubLicenseService embeds the interface so tests only implement what they
// exercise; anything else panics.
type stubLicenseService struct {
	ports.LicenseService
	createFn       func(ctx context.Context, actor ports.Principal, in ports.LicenseInput) (*domain.License, error)
	getFn          func(ctx context.Context, id string) (*domain.License, error)
	updateStatusFn func(ctx context.Context, actor ports.Principal, id string, status domain.LicenseStatus) (*domain.License, error)
	deleteFn       func(ctx context.Context, actor ports.Principal, id string) error
	expiredFn      func(ctx context.Context, asOf time.Time) ([]*domain.License, error)
	expiringFn     func(ctx context.Context, from, to time.Time) ([]*domain.License, error)
	byCustomerFn   func(ctx context.Context, name string) ([]*domain.License, error)
	generateKeyFn  func(ctx context.Context) (string, error)
}

func (s *stubLicenseService) Create(ctx context.Context, actor ports.Principal, in ports.LicenseInput) (*domain.License, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubLicenseService) Get(ctx context.Context, id string) (*domain.License, error) {
	return s.getFn(ctx, id)
}

func (s *stubLicenseService) UpdateStatus(ctx context.Context, actor ports.Principal, id string, status domain.LicenseStatus) (*domain.License, error) {
	return s.updateStatusFn(ctx, actor, id, status)
}

func (s *stubLicenseService) Delete(ctx context.Context, actor ports.Principal, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubLicenseService) FindExpired(ctx context.Context, asOf time.Time) ([]*domain.License, error) {
	return s.expiredFn(ctx, asOf)
}

func (s *stubLicenseService) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*domain.License, error) {
	return s.expiringFn(ctx, from, to)
}

func (s *stubLicenseService) ListByCustomer(ctx context.Context, name string) ([]*domain.License, error) {
	return s.byCustomerFn(ctx, name)
}

func (s *stubLicenseService) GenerateKey(ctx context.Context) (string, error) {
	return s.generateKeyFn(ctx)
}
