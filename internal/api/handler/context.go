package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/api/middleware"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// principal extracts the caller injected by middleware.Authenticate. Gated
// routes never reach a handler without one; the check keeps handlers safe
// when mounted without the gate.
func principal(c echo.Context) (ports.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return ports.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
