package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolegate/rolegate/internal/core/domain"
)

func duplicateKey(index string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: rolegate.accounts index: " + index + " dup key: { }",
	}}}
}

func TestAccountConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email index", duplicateKey("email_1"), domain.ErrEmailTaken},
		{"username index", duplicateKey("username_key_1"), domain.ErrUsernameTaken},
		{"other write error", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 121, Message: "validation failed"}}}, nil},
		{"plain error", errors.New("boom"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accountConflict(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("accountConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApprovalMiss(t *testing.T) {
	if err := approvalMiss(nil); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("existing user: got %v, want ErrNotPending", err)
	}
	if err := approvalMiss(domain.ErrUserNotFound); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("missing user: got %v, want ErrUserNotFound", err)
	}
	lookup := errors.New("socket closed")
	if err := approvalMiss(lookup); !errors.Is(err, lookup) {
		t.Fatalf("lookup failure must surface, got %v", err)
	}
}

func TestUnixToTime(t *testing.T) {
	if got := unixToTime(0); !got.IsZero() {
		t.Errorf("unixToTime(0) = %v, want zero time", got)
	}
	got := unixToTime(1773532800)
	if got.Location() != time.UTC || !got.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unixToTime = %v", got)
	}
}

// The driver connects lazily, so malformed ids are rejected without a server.
func newOfflineDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("rolegate_test")
}

func TestRepositories_MalformedIDsAreNotFound(t *testing.T) {
	db := newOfflineDatabase(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	accounts := NewAccountRepository(db)
	licenses := NewLicenseRepository(db)

	if _, err := users.FindByID(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("users.FindByID: %v", err)
	}
	if _, err := users.MarkApproved(ctx, "u1", "a1", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("users.MarkApproved: %v", err)
	}
	if err := users.Delete(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("users.Delete: %v", err)
	}
	if _, err := accounts.FindByID(ctx, "acc-1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("accounts.FindByID: %v", err)
	}
	if _, err := licenses.FindByID(ctx, "lic-1"); !errors.Is(err, domain.ErrLicenseNotFound) {
		t.Errorf("licenses.FindByID: %v", err)
	}
	if err := licenses.Delete(ctx, "lic-1"); !errors.Is(err, domain.ErrLicenseNotFound) {
		t.Errorf("licenses.Delete: %v", err)
	}
}
