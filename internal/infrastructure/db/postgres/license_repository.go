package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

const licenseColumns = `id, license_key, product_name, customer_name, customer_email, issue_date, expiry_date,
	status, max_users, current_users, description, created_by, created_at, updated_at`

type LicenseRepository struct {
	db *sql.DB
}

func NewLicenseRepository(db *sql.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

func scanLicense(row rowScanner) (*domain.License, error) {
	var (
		l               domain.License
		status          string
		maxUsers        sql.NullInt64
		desc, createdBy sql.NullString
	)
	err := row.Scan(&l.ID, &l.Key, &l.ProductName, &l.CustomerName, &l.CustomerEmail, &l.IssueDate, &l.ExpiryDate,
		&status, &maxUsers, &l.CurrentUsers, &desc, &createdBy, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LicenseStatus(status)
	if maxUsers.Valid {
		n := int(maxUsers.Int64)
		l.MaxUsers = &n
	}
	l.Description = desc.String
	l.CreatedBy = createdBy.String
	l.IssueDate = domain.DateOf(l.IssueDate)
	l.ExpiryDate = domain.DateOf(l.ExpiryDate)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func (r *LicenseRepository) Create(ctx context.Context, l *domain.License) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := l.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO licenses (`+licenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+licenseColumns,
		id, l.Key, l.ProductName, l.CustomerName, l.CustomerEmail, l.IssueDate, l.ExpiryDate,
		string(l.Status), nullInt(l.MaxUsers), l.CurrentUsers, nullString(l.Description), nullString(l.CreatedBy),
		l.CreatedAt, l.UpdatedAt)

	created, err := scanLicense(row)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return nil, domain.ErrLicenseKeyTaken
		}
		return nil, fmt.Errorf("insert license: %w", err)
	}
	return created, nil
}

func (r *LicenseRepository) FindByID(ctx context.Context, id string) (*domain.License, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrLicenseNotFound
	}
	return r.findOne(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE id = $1`, id)
}

func (r *LicenseRepository) FindByKey(ctx context.Context, key string) (*domain.License, error) {
	return r.findOne(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`, key)
}

func (r *LicenseRepository) findOne(ctx context.Context, query string, args ...any) (*domain.License, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	l, err := scanLicense(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("find license: %w", err)
	}
	return l, nil
}

func (r *LicenseRepository) ExistsByKey(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM licenses WHERE license_key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("license exists: %w", err)
	}
	return exists, nil
}

// List builds the WHERE clause from the non-zero filter fields.
func (r *LicenseRepository) List(ctx context.Context, f ports.LicenseFilter) ([]*domain.License, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.CustomerName != "" {
		add("lower(customer_name) = lower($%d)", f.CustomerName)
	}
	if f.ProductName != "" {
		add("lower(product_name) = lower($%d)", f.ProductName)
	}
	if !f.ExpiresFrom.IsZero() {
		add("expiry_date >= $%d", f.ExpiresFrom)
	}
	if !f.ExpiresTo.IsZero() {
		add("expiry_date <= $%d", f.ExpiresTo)
	}

	query := `SELECT ` + licenseColumns + ` FROM licenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY expiry_date, license_key`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	out := []*domain.License{}
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns; license_key and created_by stay.
func (r *LicenseRepository) Update(ctx context.Context, l *domain.License) (*domain.License, error) {
	if _, err := uuid.Parse(l.ID); err != nil {
		return nil, domain.ErrLicenseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE licenses
		SET product_name = $2, customer_name = $3, customer_email = $4, issue_date = $5, expiry_date = $6,
		    status = $7, max_users = $8, current_users = $9, description = $10, updated_at = $11
		WHERE id = $1
		RETURNING `+licenseColumns,
		l.ID, l.ProductName, l.CustomerName, l.CustomerEmail, l.IssueDate, l.ExpiryDate,
		string(l.Status), nullInt(l.MaxUsers), l.CurrentUsers, nullString(l.Description), l.UpdatedAt)

	updated, err := scanLicense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("update license: %w", err)
	}
	return updated, nil
}

func (r *LicenseRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrLicenseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrLicenseNotFound
	}
	return nil
}

func (r *LicenseRepository) CustomerNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT customer_name FROM licenses ORDER BY customer_name`)
}

func (r *LicenseRepository) ProductNames(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT product_name FROM licenses ORDER BY product_name`)
}

func (r *LicenseRepository) distinct(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct names: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
