package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name, role, status, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a            domain.Account
		first, last  sql.NullString
		role, status string
	)
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &first, &last, &role, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.FirstName = first.String
	a.LastName = last.String
	a.Role = domain.AccountRole(role)
	a.Status = domain.AccountStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := account.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+accountColumns,
		id, account.Username, account.Email, account.PasswordHash,
		nullString(account.FirstName), nullString(account.LastName),
		string(account.Role), string(account.Status), account.CreatedAt, account.UpdatedAt)

	created, err := scanAccount(row)
	if err != nil {
		switch uniqueConstraint(err) {
		case "":
			return nil, fmt.Errorf("insert account: %w", err)
		case "accounts_email_key":
			return nil, domain.ErrEmailTaken
		default:
			return nil, domain.ErrUsernameTaken
		}
	}
	return created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(username) = lower($1)`, username)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&n)
	return n, err
}
