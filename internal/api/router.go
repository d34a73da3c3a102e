package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/rolegate/rolegate/docs"
	"github.com/rolegate/rolegate/internal/api/handler"
	"github.com/rolegate/rolegate/internal/api/middleware"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer is built on.
type Dependencies struct {
	Users    ports.UserService
	Accounts ports.AccountService
	Licenses ports.LicenseService
	Tokens   ports.TokenVerifier
	Gate     ports.AccessGate
	Checks   map[string]handler.Check
	Log      zerolog.Logger

	// Metrics receives the HTTP collectors and backs /metrics. Nil uses the
	// default registry, where the application metrics live.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "rolegate",
		Registerer: registerer,
	}))

	// --- Operational endpoints (no auth required) ---
	health := handler.NewHealthHandler(deps.Checks)
	e.GET("/health", health.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	registerPortal(e, deps)
	registerLicensing(e, deps)

	return e
}

// registerPortal mounts the exam portal under /api with "portal" tokens.
func registerPortal(e *echo.Echo, deps Dependencies) {
	g := e.Group("/api", middleware.Authenticate(deps.Tokens, ports.AudiencePortal, deps.Log))
	require := func(op string) echo.MiddlewareFunc { return middleware.Require(deps.Gate, op, deps.Log) }

	auth := handler.NewAuthHandler(deps.Users)
	g.POST("/auth/register", auth.Register)
	g.POST("/auth/login", auth.Login)

	users := handler.NewUserHandler(deps.Users)
	g.POST("/users/approve/:userId", users.Approve, require(ports.OpUsersApprove))
	g.GET("/users/pending", users.Pending, require(ports.OpUsersPending))

	for _, prefix := range []string{"/users/role/:role", "/users/:collection"} {
		g.GET(prefix, users.List, require(ports.OpUsersRead))
		g.GET(prefix+"/:id", users.Get, require(ports.OpUsersRead))
		g.PUT(prefix+"/:id", users.Update, require(ports.OpUsersUpdate))
		g.PATCH(prefix+"/:id", users.Patch, require(ports.OpUsersUpdate))
		g.DELETE(prefix+"/:id", users.Delete, require(ports.OpUsersDelete))
	}
}

// registerLicensing mounts the licensing service at the root with
// "licensing" tokens.
func registerLicensing(e *echo.Echo, deps Dependencies) {
	authn := middleware.Authenticate(deps.Tokens, ports.AudienceLicensing, deps.Log)
	require := func(op string) echo.MiddlewareFunc { return middleware.Require(deps.Gate, op, deps.Log) }

	accounts := handler.NewAccountHandler(deps.Accounts)
	e.POST("/auth/register", accounts.Register)
	e.POST("/auth/login", accounts.Login)
	e.GET("/auth/health", accounts.Health)

	l := handler.NewLicenseHandler(deps.Licenses)
	g := e.Group("/licenses", authn)
	g.POST("", l.Create, require(ports.OpLicensesCreate))
	g.GET("", l.List, require(ports.OpLicensesList))
	g.GET("/generate-key", l.GenerateKey, require(ports.OpLicensesGenerateKey))
	g.GET("/expired", l.Expired, require(ports.OpLicensesExpired))
	g.GET("/expiring", l.Expiring, require(ports.OpLicensesSearch))
	g.GET("/customers", l.Customers, require(ports.OpLicensesSearch))
	g.GET("/products", l.Products, require(ports.OpLicensesSearch))
	g.GET("/key/:key", l.GetByKey, require(ports.OpLicensesRead))
	g.GET("/customer/:name", l.ByCustomer, require(ports.OpLicensesSearch))
	g.GET("/product/:name", l.ByProduct, require(ports.OpLicensesSearch))
	g.GET("/status/:status", l.ByStatus, require(ports.OpLicensesSearch))
	g.GET("/:id", l.Get, require(ports.OpLicensesRead))
	g.PUT("/:id", l.Update, require(ports.OpLicensesUpdate))
	g.PATCH("/:id/status", l.UpdateStatus, require(ports.OpLicensesStatus))
	g.DELETE("/:id", l.Delete, require(ports.OpLicensesDelete))
}

// requestLogger emits one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
