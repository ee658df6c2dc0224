package postgres

import (
	"context"
	"errors"
	"fmt"

	"casino-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const walletColumns = `user_id, currency, real_balance, bonus_balance, locked_balance,
	total_deposited, total_withdrawn, total_wagered, total_won, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet. A concurrent open of the same wallet loses on
// the primary key.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		w.UserID, w.Currency, w.Real, w.Bonus, w.Locked,
		w.TotalDeposited, w.TotalWithdrawn, w.TotalWagered, w.TotalWon,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "") {
			return fmt.Errorf("wallet for user %d already exists: %w", w.UserID, err)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a wallet without locking.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// GetForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// Update writes every balance column of a locked wallet.
func (r *WalletRepo) Update(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `UPDATE wallets SET real_balance = $1, bonus_balance = $2, locked_balance = $3,
		total_deposited = $4, total_withdrawn = $5, total_wagered = $6, total_won = $7, updated_at = $8
		WHERE user_id = $9`

	tag, err := tx.Exec(ctx, query,
		w.Real, w.Bonus, w.Locked,
		w.TotalDeposited, w.TotalWithdrawn, w.TotalWagered, w.TotalWon, w.UpdatedAt,
		w.UserID,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %d", w.UserID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.UserID, &w.Currency, &w.Real, &w.Bonus, &w.Locked,
		&w.TotalDeposited, &w.TotalWithdrawn, &w.TotalWagered, &w.TotalWon,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
