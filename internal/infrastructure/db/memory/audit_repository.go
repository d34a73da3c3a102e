package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rolegate/rolegate/internal/core/domain"
)

// AuditRepository keeps audit events in process memory.
type AuditRepository struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) InsertEvent(_ context.Context, event *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *event
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of the recorded events in insertion order.
func (r *AuditRepository) Events() []domain.AuditEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}
