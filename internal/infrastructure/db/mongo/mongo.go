package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	defaultTimeout = 10 * time.Second
)

// Config holds the MONGO_* settings.
type Config struct {
	URI      string
	Database string
}

// Store is an open connection to the rolegate database. The repositories
// are built from DB.
type Store struct {
	client *mongo.Client
	DB     *mongo.Database
}

// Open connects and pings the primary before handing the database out.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("rolegate").
		SetServerSelectionTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	s := &Store{client: client, DB: client.Database(cfg.Database)}
	if err := s.HealthCheck(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// HealthCheck pings the primary; used by the readiness probe.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes creates the unique and lookup indexes of every collection.
// It is idempotent and runs on startup and from `rolegate migrate`.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, repo := range []indexer{
		NewUserRepository(s.DB),
		NewAccountRepository(s.DB),
		NewLicenseRepository(s.DB),
		NewAuditRepository(s.DB),
	} {
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
	}
	return nil
}
