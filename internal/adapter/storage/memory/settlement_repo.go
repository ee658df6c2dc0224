package memory

import (
	"context"
	"fmt"

	"casino-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SettlementRepository implements ports.SettlementRepository.
type SettlementRepository struct {
	s *Store
}

func NewSettlementRepository(s *Store) *SettlementRepository {
	return &SettlementRepository{s: s}
}

func (r *SettlementRepository) Get(_ context.Context, provider, serial string) (*domain.ExternalSettlement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.settlements[domain.SettlementKey(provider, serial)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *SettlementRepository) GetInTx(ctx context.Context, tx pgx.Tx, provider, serial string) (*domain.ExternalSettlement, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	return r.Get(ctx, provider, serial)
}

func (r *SettlementRepository) Create(_ context.Context, tx pgx.Tx, rec *domain.ExternalSettlement) error {
	key := domain.SettlementKey(rec.Provider, rec.SerialNumber)
	var dup bool
	err := r.s.write(tx, func() func() {
		if _, ok := r.s.settlements[key]; ok {
			dup = true
			return nil
		}
		cp := *rec
		r.s.settlements[key] = &cp
		r.s.settledKeys = append(r.s.settledKeys, key)
		return func() {
			delete(r.s.settlements, key)
			r.s.settledKeys = r.s.settledKeys[:len(r.s.settledKeys)-1]
		}
	})
	if err != nil {
		return err
	}
	if dup {
		return domain.ErrDuplicateSettlement
	}
	return nil
}

func (r *SettlementRepository) FindRound(_ context.Context, tx pgx.Tx, provider string, userID int64, gameRound string) (*domain.ExternalSettlement, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest, open *domain.ExternalSettlement
	for _, key := range r.s.settledKeys {
		rec := r.s.settlements[key]
		if rec.Provider != provider || rec.UserID != userID || rec.GameRound != gameRound || rec.Kind != domain.SettlementKindBet {
			continue
		}
		latest = rec
		if rec.Status == domain.SettlementStatusApplied {
			open = rec
		}
	}
	if open != nil {
		latest = open
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *SettlementRepository) UpdateReversal(_ context.Context, tx pgx.Tx, rec *domain.ExternalSettlement) error {
	key := domain.SettlementKey(rec.Provider, rec.SerialNumber)
	var missing bool
	err := r.s.write(tx, func() func() {
		cur, ok := r.s.settlements[key]
		if !ok {
			missing = true
			return nil
		}
		prev := *cur
		cur.Reversed, cur.Status = rec.Reversed, rec.Status
		return func() { *cur = prev }
	})
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("settlement %s not found", key)
	}
	return nil
}
