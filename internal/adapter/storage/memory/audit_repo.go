package memory

import (
	"context"

	"casino-core/internal/core/domain"
)

// AuditRepository implements ports.AuditRepository.
type AuditRepository struct {
	s *Store
}

func NewAuditRepository(s *Store) *AuditRepository {
	return &AuditRepository{s: s}
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}
