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

// BetRepository implements ports.BetRepository.
type BetRepository struct {
	s *Store
}

func NewBetRepository(s *Store) *BetRepository {
	return &BetRepository{s: s}
}

func (r *BetRepository) Create(_ context.Context, tx pgx.Tx, bet *domain.Bet) error {
	var dup bool
	err := r.s.write(tx, func() func() {
		if _, ok := r.s.bets[bet.ID]; ok {
			dup = true
			return nil
		}
		cp := *bet
		r.s.bets[bet.ID] = &cp
		return func() { delete(r.s.bets, bet.ID) }
	})
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("bet %s already exists", bet.ID)
	}
	return nil
}

func (r *BetRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Bet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bets[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *BetRepository) Settle(_ context.Context, tx pgx.Tx, bet *domain.Bet) (bool, error) {
	var settled bool
	err := r.s.write(tx, func() func() {
		prev, ok := r.s.bets[bet.ID]
		if !ok || prev.Status != domain.BetStatusPending {
			return nil
		}
		next := *prev
		next.Status = bet.Status
		next.Outcome = bet.Outcome
		next.Multiplier = bet.Multiplier
		next.Payout = bet.Payout
		next.Profit = bet.Profit
		next.SettledAt = bet.SettledAt
		r.s.bets[bet.ID] = &next
		settled = true
		return func() { r.s.bets[bet.ID] = prev }
	})
	return settled, err
}

func (r *BetRepository) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]domain.Bet, error) {
	r.s.mu.RLock()
	var out []domain.Bet
	for _, b := range r.s.bets {
		if b.Expired(now) {
			out = append(out, *b)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
