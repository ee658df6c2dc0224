package memory

import (
	"context"
	"fmt"

	"casino-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepository implements ports.WalletRepository.
type WalletRepository struct {
	s *Store
}

func NewWalletRepository(s *Store) *WalletRepository {
	return &WalletRepository{s: s}
}

func (r *WalletRepository) Create(_ context.Context, tx pgx.Tx, w *domain.Wallet) error {
	var dup bool
	err := r.s.write(tx, func() func() {
		if _, ok := r.s.wallets[w.UserID]; ok {
			dup = true
			return nil
		}
		cp := *w
		r.s.wallets[w.UserID] = &cp
		return func() { delete(r.s.wallets, w.UserID) }
	})
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("wallet for user %d already exists", w.UserID)
	}
	return nil
}

func (r *WalletRepository) GetByUserID(_ context.Context, userID int64) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// GetForUpdate needs no row lock: the open transaction already excludes
// every other writer.
func (r *WalletRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	if _, ok := tx.(*Tx); !ok {
		return nil, errNotInTx
	}
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepository) Update(_ context.Context, tx pgx.Tx, w *domain.Wallet) error {
	var missing bool
	err := r.s.write(tx, func() func() {
		prev, ok := r.s.wallets[w.UserID]
		if !ok {
			missing = true
			return nil
		}
		cp := *w
		r.s.wallets[w.UserID] = &cp
		return func() { r.s.wallets[w.UserID] = prev }
	})
	if err != nil {
		return err
	}
	if missing {
		return fmt.Errorf("wallet for user %d not found", w.UserID)
	}
	return nil
}
