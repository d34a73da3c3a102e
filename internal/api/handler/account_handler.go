package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// AccountHandler serves licensing account registration and login.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register creates a licensing account and signs it in.
//
// @Summary      Register a licensing account
// @Tags         licensing-auth
// @Accept       json
// @Produce      json
// @Param        body  body      accountRegisterRequest  true  "Account details"
// @Success      201   {object}  accountAuthResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req accountRegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Register(c.Request().Context(), ports.AccountRegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.AccountRole(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAccountAuthResponse(res))
}

// Login authenticates a licensing account by username.
//
// @Summary      Licensing login
// @Tags         licensing-auth
// @Accept       json
// @Produce      json
// @Param        body  body      accountLoginRequest  true  "Login credentials"
// @Success      200   {object}  accountAuthResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req accountLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountAuthResponse(res))
}

// Health reports that the licensing auth endpoints are reachable.
//
// @Summary      Licensing auth health
// @Tags         licensing-auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/health [get]
func (h *AccountHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "auth service is running"})
}

func toAccountAuthResponse(res *ports.AccountAuthResult) accountAuthResponse {
	return accountAuthResponse{
		Token:     res.Token,
		Type:      "Bearer",
		Username:  res.Username,
		Role:      string(res.Role),
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		Message:   res.Message,
	}
}
