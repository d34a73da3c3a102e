package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/core/ports"
)

// PrincipalKey is the echo.Context key holding the authenticated ports.Principal.
const PrincipalKey = "principal"

// Authenticate verifies the bearer token for audience and, when valid, stores
// the principal in both the echo context and the request context. Missing,
// malformed, expired or foreign-audience tokens are treated as absent: the
// request continues unauthenticated and is rejected by Require if the route
// is gated.
func Authenticate(verifier ports.TokenVerifier, audience string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			p, err := verifier.Verify(token, audience)
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("bearer token rejected")
				return next(c)
			}

			c.Set(PrincipalKey, p)
			req := c.Request()
			c.SetRequest(req.WithContext(ports.WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(c echo.Context) (ports.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(ports.Principal)
	return p, ok && p.Subject != ""
}
