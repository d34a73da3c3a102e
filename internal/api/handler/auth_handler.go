package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// AuthHandler serves portal registration and login.
type AuthHandler struct {
	users ports.UserService
}

func NewAuthHandler(users ports.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register creates a portal user. Every role except ADMIN starts PENDING.
//
// @Summary      Register a portal user
// @Tags         portal-auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  registrationResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.NewValidationError("role", "must be one of STUDENT CLASS_TEACHER HOD PRINCIPAL ADMIN")
	}

	res, err := h.users.Register(c.Request().Context(), ports.RegisterInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		Role:              role,
		ClassOrDepartment: req.ClassOrDepartment,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registrationResponse{
		User:             toUserResponse(res.User),
		RequiredApprover: string(res.RequiredApprover),
		Message:          res.Message,
	})
}

// Login authenticates an approved portal user and returns a JWT.
//
// @Summary      Portal login
// @Tags         portal-auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		Type:      "Bearer",
		UserID:    res.UserID,
		Role:      res.Role,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		Message:   res.Message,
	})
}
