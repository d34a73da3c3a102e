package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rolegate/rolegate/internal/core/domain"
)

func TestOpen_EmptyDSN(t *testing.T) {
	db, err := Open(context.Background(), "")
	if err == nil {
		t.Fatal("Open with empty DSN should return error")
	}
	if db != nil {
		t.Error("Open should return nil db when error occurs")
	}
}

func TestMigrate_RejectsBadInput(t *testing.T) {
	if err := Migrate("", "up"); err == nil {
		t.Error("expected error for empty DSN")
	}
	if err := Migrate("postgres://localhost/db", "sideways"); err == nil || !strings.Contains(err.Error(), "direction") {
		t.Errorf("expected direction error, got %v", err)
	}
}

func TestMigrationFS_HasPairedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up / %d down", ups, downs)
	}
}

func TestUniqueConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "accounts_email_key"}

	if got := uniqueConstraint(fmt.Errorf("insert: %w", pgErr)); got != "accounts_email_key" {
		t.Errorf("got %q", got)
	}
	if got := uniqueConstraint(&pgconn.PgError{Code: "23503"}); got != "" {
		t.Errorf("foreign key violation reported as unique: %q", got)
	}
	if got := uniqueConstraint(errors.New("boom")); got != "" {
		t.Errorf("plain error reported as unique: %q", got)
	}
}

func TestApprovalMiss(t *testing.T) {
	if err := approvalMiss(nil); !errors.Is(err, domain.ErrNotPending) {
		t.Errorf("existing user: got %v", err)
	}
	if err := approvalMiss(domain.ErrUserNotFound); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("missing user: got %v", err)
	}
}

func TestUserRepository_MalformedIDsAreNotFound(t *testing.T) {
	repo := NewUserRepository(nil)
	ctx := context.Background()

	if _, err := repo.MarkApproved(ctx, "u1", "a1", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("MarkApproved: %v", err)
	}
}
