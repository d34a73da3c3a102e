package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// AuditRepository writes audit events to the audit_events table.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, service, action, subject_id, actor_id, outcome, detail, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, event.Service, event.Action, nullString(event.SubjectID), nullString(event.ActorID),
		event.Outcome, nullString(event.Detail), event.At.UTC())
	return err
}
