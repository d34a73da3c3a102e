package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rolegate/rolegate/internal/api/handler"
	"github.com/rolegate/rolegate/internal/core/ports"
	"github.com/rolegate/rolegate/internal/infrastructure/db/memory"
	"github.com/rolegate/rolegate/internal/infrastructure/db/mongo"
	"github.com/rolegate/rolegate/internal/infrastructure/db/postgres"
	"github.com/rolegate/rolegate/internal/infrastructure/db/redis"
	"github.com/rolegate/rolegate/internal/pkg/config"
)

// stores bundles the repositories of the configured driver.
type stores struct {
	users    ports.UserRepository
	accounts ports.AccountRepository
	licenses ports.LicenseRepository
	audit    ports.AuditRepository

	checks  map[string]handler.Check
	closers []func(context.Context) error
}

func (s *stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// openStores connects to the backend selected by STORE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	s := &stores{checks: map[string]handler.Check{}}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		store, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.users = mongo.NewUserRepository(store.DB)
		s.accounts = mongo.NewAccountRepository(store.DB)
		s.licenses = mongo.NewLicenseRepository(store.DB)
		s.audit = mongo.NewAuditRepository(store.DB)
		s.checks["mongodb"] = store.HealthCheck

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		s.users = postgres.NewUserRepository(db)
		s.accounts = postgres.NewAccountRepository(db)
		s.licenses = postgres.NewLicenseRepository(db)
		s.audit = postgres.NewAuditRepository(db)
		s.checks["postgres"] = db.PingContext

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		s.users = memory.NewUserRepository()
		s.accounts = memory.NewAccountRepository()
		s.licenses = memory.NewLicenseRepository()
		s.audit = memory.NewAuditRepository()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	log.Info().Str("driver", cfg.StoreDriver).Msg("store ready")
	return s, nil
}

// openThrottle returns the redis-backed login throttle, or nil when
// REDIS_ADDR is unset.
func openThrottle(ctx context.Context, cfg *config.Config, s *stores, log zerolog.Logger) (ports.LoginThrottle, error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, login throttling disabled")
		return nil, nil
	}

	store, err := redis.Open(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, store.Close)
	s.checks["redis"] = store.HealthCheck

	return store.Throttle(cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockout), nil
}
