package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
	"github.com/rolegate/rolegate/internal/core/service"
	"github.com/rolegate/rolegate/internal/pkg/security"
	"github.com/rolegate/rolegate/pkg/logger"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default administrator accounts",
	Long: `Create a portal ADMIN and licensing admin, manager and user accounts.

Each store is seeded only while it is empty. Passwords come from SEED_PASSWORD;
when unset a random password is generated per account and logged once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStores(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close(cmd.Context()) }()

		hasher := security.NewHasher(cfg.Auth.BcryptCost)
		tokens := security.NewTokenManager(cfg.Auth.JWTSecret, tokenIssuer, cfg.Auth.TokenTTL)
		users := service.NewUserService(s.users, hasher, tokens, logger.For("portal"))
		accounts := service.NewAccountService(s.accounts, hasher, tokens, logger.For("licensing"))

		return seedDefaults(cmd.Context(), s, users, accounts, cfg.SeedPassword)
	},
}

type seedAccount struct {
	username string
	role     domain.AccountRole
}

var defaultAccounts = []seedAccount{
	{"admin", domain.AccountAdmin},
	{"manager", domain.AccountManager},
	{"user", domain.AccountUser},
}

// seedDefaults creates the default identities in each empty store.
func seedDefaults(ctx context.Context, s *stores, users ports.UserService, accounts ports.AccountService, password string) error {
	n, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count portal users: %w", err)
	}
	if n == 0 {
		pw := seedPassword(password)
		res, err := users.Register(ctx, ports.RegisterInput{
			Name:     "Administrator",
			Email:    "admin@rolegate.local",
			Password: pw,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("seed portal admin: %w", err)
		}
		logSeeded("portal", res.User.Email, pw, password == "")
	}

	n, err = s.accounts.Count(ctx)
	if err != nil {
		return fmt.Errorf("count licensing accounts: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, a := range defaultAccounts {
		pw := seedPassword(password)
		if _, err := accounts.Register(ctx, ports.AccountRegisterInput{
			Username:  a.username,
			Email:     a.username + "@rolegate.local",
			Password:  pw,
			FirstName: string(a.role),
			LastName:  "User",
			Role:      a.role,
		}); err != nil {
			return fmt.Errorf("seed licensing %s: %w", a.username, err)
		}
		logSeeded("licensing", a.username, pw, password == "")
	}
	return nil
}

func seedPassword(configured string) string {
	if configured != "" {
		return configured
	}
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func logSeeded(subsystem, login, password string, generated bool) {
	ev := log.Info().Str("service", subsystem).Str("login", login)
	if generated {
		ev = ev.Str("password", password)
	}
	ev.Msg("default account created")
}
