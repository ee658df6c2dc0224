package memory

import (
	"context"
	"sort"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements ports.TransactionRepository.
type TransactionRepository struct {
	s *Store
}

func NewTransactionRepository(s *Store) *TransactionRepository {
	return &TransactionRepository{s: s}
}

func (r *TransactionRepository) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.s.write(tx, func() func() {
		r.s.seq++
		t.Seq = r.s.seq
		r.s.entries[t.UserID] = append(r.s.entries[t.UserID], *t)
		userID := t.UserID
		return func() {
			list := r.s.entries[userID]
			r.s.entries[userID] = list[:len(list)-1]
		}
	})
}

func (r *TransactionRepository) ListByUser(_ context.Context, userID int64) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.Transaction(nil), r.s.entries[userID]...), nil
}

// List returns a page of entries, newest first.
func (r *TransactionRepository) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.RLock()
	all := r.s.entries[params.UserID]
	matched := make([]domain.Transaction, 0, len(all))
	for _, t := range all {
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Bucket != nil && t.Bucket != *params.Bucket && t.Counter != *params.Bucket {
			continue
		}
		if params.From != nil && t.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && t.CreatedAt.Unix() > *params.To {
			continue
		}
		matched = append(matched, t)
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Seq > matched[j].Seq })

	total := int64(len(matched))
	offset := (params.Page - 1) * params.PageSize
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + params.PageSize
	if params.PageSize <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
