package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/api/metrics"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// Require admits the request only when the access gate permits the
// authenticated principal to invoke operation. Unauthenticated requests get
// 401; authenticated callers outside the permitted role set get 403.
func Require(gate ports.AccessGate, operation string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				metrics.AccessDecisionsTotal.WithLabelValues(operation, "unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			allowed, err := gate.Allow(c.Request().Context(), p, operation)
			if err != nil {
				metrics.AccessDecisionsTotal.WithLabelValues(operation, "error").Inc()
				log.Error().Err(err).Str("operation", operation).Msg("access gate failed")
				return err
			}
			if !allowed {
				metrics.AccessDecisionsTotal.WithLabelValues(operation, "deny").Inc()
				log.Warn().
					Str("operation", operation).
					Str("subject", p.Subject).
					Str("role", p.Role).
					Msg("access denied")
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}

			metrics.AccessDecisionsTotal.WithLabelValues(operation, "allow").Inc()
			return next(c)
		}
	}
}
