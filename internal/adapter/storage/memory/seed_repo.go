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

// SeedRepository implements ports.SeedRepository.
type SeedRepository struct {
	s *Store
}

func NewSeedRepository(s *Store) *SeedRepository {
	return &SeedRepository{s: s}
}

func (r *SeedRepository) GetActive(_ context.Context, userID int64) (*domain.SeedPair, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p := r.activeLocked(userID); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *SeedRepository) GetActiveForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	return r.GetActive(ctx, userID)
}

func (r *SeedRepository) Create(_ context.Context, tx pgx.Tx, pair *domain.SeedPair) error {
	var conflict bool
	err := r.s.write(tx, func() func() {
		if pair.Active && r.activeLocked(pair.UserID) != nil {
			conflict = true
			return nil
		}
		cp := *pair
		r.s.seeds[pair.ID] = &cp
		return func() { delete(r.s.seeds, pair.ID) }
	})
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("user %d already has an active seed pair", pair.UserID)
	}
	return nil
}

func (r *SeedRepository) UpdateNonce(_ context.Context, tx pgx.Tx, id uuid.UUID, nonce int64) error {
	return r.update(tx, id, func(p *domain.SeedPair) error {
		if !p.Active {
			return fmt.Errorf("seed pair %s is revealed", id)
		}
		if nonce < p.Nonce {
			return fmt.Errorf("seed pair %s: nonce cannot decrease", id)
		}
		p.Nonce = nonce
		return nil
	})
}

func (r *SeedRepository) Reveal(_ context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return r.update(tx, id, func(p *domain.SeedPair) error {
		if !p.Active {
			return fmt.Errorf("seed pair %s is already revealed", id)
		}
		p.Active = false
		p.RevealedAt = &at
		return nil
	})
}

func (r *SeedRepository) ListRevealed(_ context.Context, userID int64, limit int) ([]domain.SeedPair, error) {
	r.s.mu.RLock()
	var out []domain.SeedPair
	for _, p := range r.s.seeds {
		if p.UserID == userID && p.IsRevealed() {
			out = append(out, *p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RevealedAt.After(*out[j].RevealedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SeedRepository) update(tx pgx.Tx, id uuid.UUID, fn func(*domain.SeedPair) error) error {
	var fnErr error
	err := r.s.write(tx, func() func() {
		prev, ok := r.s.seeds[id]
		if !ok {
			fnErr = fmt.Errorf("seed pair %s not found", id)
			return nil
		}
		next := *prev
		if fnErr = fn(&next); fnErr != nil {
			return nil
		}
		r.s.seeds[id] = &next
		return func() { r.s.seeds[id] = prev }
	})
	if err != nil {
		return err
	}
	return fnErr
}

func (r *SeedRepository) activeLocked(userID int64) *domain.SeedPair {
	for _, p := range r.s.seeds {
		if p.UserID == userID && p.Active {
			return p
		}
	}
	return nil
}
