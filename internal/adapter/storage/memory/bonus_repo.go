package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BonusRepository implements ports.BonusRepository.
type BonusRepository struct {
	s *Store
}

func NewBonusRepository(s *Store) *BonusRepository {
	return &BonusRepository{s: s}
}

func (r *BonusRepository) Create(_ context.Context, tx pgx.Tx, g *domain.BonusGrant) error {
	return r.s.write(tx, func() func() {
		cp := *g
		r.s.bonuses[g.ID] = &cp
		return func() { delete(r.s.bonuses, g.ID) }
	})
}

func (r *BonusRepository) GetForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BonusGrant, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.bonuses[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

// ListActiveForUpdate returns a user's active grants, oldest first.
func (r *BonusRepository) ListActiveForUpdate(_ context.Context, tx pgx.Tx, userID int64) ([]domain.BonusGrant, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	r.s.mu.RLock()
	var out []domain.BonusGrant
	for _, g := range r.s.bonuses {
		if g.UserID == userID && g.IsActive() {
			out = append(out, *g)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *BonusRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.BonusGrant, error) {
	r.s.mu.RLock()
	var out []domain.BonusGrant
	for _, g := range r.s.bonuses {
		if g.Expired(now) {
			out = append(out, *g)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BonusRepository) Update(_ context.Context, tx pgx.Tx, g *domain.BonusGrant) error {
	var missing bool
	err := r.s.write(tx, func() func() {
		prev, ok := r.s.bonuses[g.ID]
		if !ok {
			missing = true
			return nil
		}
		cp := *g
		r.s.bonuses[g.ID] = &cp
		return func() { r.s.bonuses[g.ID] = prev }
	})
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("bonus grant %s not found", g.ID)
	}
	return nil
}
