package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

const userColumns = `id, name, email, password_hash, role, approval_state, approved_by, class_or_department, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                 domain.User
		role, state       string
		approvedBy, class sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &state, &approvedBy, &class, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.ApprovalState = domain.ApprovalState(state)
	u.ApprovedBy = approvedBy.String
	u.ClassOrDepartment = class.String
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO portal_users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		id, user.Name, user.Email, user.PasswordHash, string(user.Role), string(user.ApprovalState),
		nullString(user.ApprovedBy), nullString(user.ClassOrDepartment), user.CreatedAt, user.UpdatedAt)

	created, err := scanUser(row)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM portal_users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM portal_users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM portal_users WHERE role = $1 ORDER BY created_at, id`, string(role))
}

func (r *UserRepository) ListPending(ctx context.Context, roles []domain.Role) ([]*domain.User, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return r.list(ctx, `SELECT `+userColumns+` FROM portal_users
		WHERE approval_state = $1 AND role = ANY($2)
		ORDER BY created_at, id`, string(domain.ApprovalPending), names)
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, err := uuid.Parse(user.ID); err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE portal_users
		SET name = $2, email = $3, class_or_department = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Name, user.Email, nullString(user.ClassOrDepartment), user.UpdatedAt)

	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if uniqueConstraint(err) != "" {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// MarkApproved updates only while the row is still PENDING; a concurrent
// approver blocks on the row lock and then matches nothing.
func (r *UserRepository) MarkApproved(ctx context.Context, id, approverID string, at time.Time) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE portal_users
		SET approval_state = $2, approved_by = $3, updated_at = $4
		WHERE id = $1 AND approval_state = $5
		RETURNING `+userColumns,
		id, string(domain.ApprovalApproved), approverID, at, string(domain.ApprovalPending))

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		_, ferr := r.FindByID(ctx, id)
		return nil, approvalMiss(ferr)
	}
	if err != nil {
		return nil, fmt.Errorf("approve user: %w", err)
	}
	return u, nil
}

// approvalMiss reports why the conditional UPDATE matched no row, given a
// fresh lookup of the user.
func approvalMiss(lookupErr error) error {
	if lookupErr != nil {
		return lookupErr
	}
	return domain.ErrNotPending
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM portal_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM portal_users`).Scan(&n)
	return n, err
}
