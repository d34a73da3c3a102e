package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Config holds the REDIS_* settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store owns the Redis client used for login throttling.
type Store struct {
	client *redis.Client
}

// Open dials Redis and fails fast when the server does not answer a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	s := &Store{client: client}
	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := s.HealthCheck(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Throttle returns a LoginThrottle sharing this store's client.
func (s *Store) Throttle(maxAttempts int, lockout time.Duration) *LoginThrottle {
	return NewLoginThrottle(s.client, maxAttempts, lockout)
}

// HealthCheck pings the server; used by the readiness probe.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error {
	return s.client.Close()
}
