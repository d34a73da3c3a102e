package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/api"
	"github.com/rolegate/rolegate/internal/core/service"
	"github.com/rolegate/rolegate/internal/infrastructure/policy"
	"github.com/rolegate/rolegate/internal/infrastructure/queue"
	"github.com/rolegate/rolegate/internal/pkg/security"
	"github.com/rolegate/rolegate/pkg/logger"
)

const (
	tokenIssuer     = "rolegate"
	shutdownTimeout = 15 * time.Second
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the portal and licensing HTTP APIs until SIGINT or SIGTERM.

Examples:
  STORE_DRIVER=memory JWT_SECRET=... rolegate serve
  STORE_DRIVER=postgres DATABASE_URL=postgres://... rolegate serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	s, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing stores")
		}
	}()

	throttle, err := openThrottle(ctx, cfg, s, log)
	if err != nil {
		return err
	}

	doc, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return err
	}
	gate, err := policy.NewGate(ctx, doc, logger.For("policy"))
	if err != nil {
		return err
	}
	s.checks["policy"] = gate.HealthCheck

	// Audit workers outlive request contexts; Close drains them on shutdown.
	audit := queue.NewDispatcher(cfg.Audit.Workers, s.audit, logger.For("audit"))
	audit.Start(context.Background())
	defer audit.Close()

	hasher := security.NewHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, tokenIssuer, cfg.Auth.TokenTTL)
	opts := []service.Option{service.WithAuditSink(audit), service.WithLoginThrottle(throttle)}

	users := service.NewUserService(s.users, hasher, tokens, logger.For("portal"), opts...)
	accounts := service.NewAccountService(s.accounts, hasher, tokens, logger.For("licensing"), opts...)
	licenses := service.NewLicenseService(s.licenses, logger.For("licensing"), service.WithAuditSink(audit))

	if cfg.SeedDefault {
		if err := seedDefaults(ctx, s, users, accounts, cfg.SeedPassword); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Dependencies{
		Users:    users,
		Accounts: accounts,
		Licenses: licenses,
		Tokens:   tokens,
		Gate:     gate,
		Checks:   s.checks,
		Log:      logger.For("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
