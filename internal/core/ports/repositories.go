package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error)
	Update(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
}

// TransactionRepository is the append-only ledger log.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) error
	// ListByUser returns every entry of a wallet in append order.
	ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for the ledger statement.
type TransactionListParams struct {
	UserID   int64
	Type     *domain.TransactionType
	Bucket   *domain.Bucket
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// BetRepository persists bets. Settle only succeeds on a PENDING row.
type BetRepository interface {
	Create(ctx context.Context, tx pgx.Tx, bet *domain.Bet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error)
	// Settle writes the terminal fields of bet if the stored row is still
	// PENDING and reports whether it did.
	Settle(ctx context.Context, tx pgx.Tx, bet *domain.Bet) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Bet, error)
}

// SeedRepository persists seed pairs. At most one pair per user is active.
type SeedRepository interface {
	GetActive(ctx context.Context, userID int64) (*domain.SeedPair, error)
	GetActiveForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error)
	Create(ctx context.Context, tx pgx.Tx, pair *domain.SeedPair) error
	UpdateNonce(ctx context.Context, tx pgx.Tx, id uuid.UUID, nonce int64) error
	Reveal(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	ListRevealed(ctx context.Context, userID int64, limit int) ([]domain.SeedPair, error)
}

// BonusRepository persists bonus grants.
type BonusRepository interface {
	Create(ctx context.Context, tx pgx.Tx, grant *domain.BonusGrant) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BonusGrant, error)
	ListActiveForUpdate(ctx context.Context, tx pgx.Tx, userID int64) ([]domain.BonusGrant, error)
	// ListExpired returns active grants whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.BonusGrant, error)
	Update(ctx context.Context, tx pgx.Tx, grant *domain.BonusGrant) error
}

// SettlementRepository is the durable idempotency log of provider callbacks.
type SettlementRepository interface {
	Get(ctx context.Context, provider, serial string) (*domain.ExternalSettlement, error)
	GetInTx(ctx context.Context, tx pgx.Tx, provider, serial string) (*domain.ExternalSettlement, error)
	// Create returns domain.ErrDuplicateSettlement when the key exists.
	Create(ctx context.Context, tx pgx.Tx, rec *domain.ExternalSettlement) error
	// FindRound returns the latest BET record of a member's game round that
	// still has something to reverse, or the latest one when none has.
	FindRound(ctx context.Context, tx pgx.Tx, provider string, userID int64, gameRound string) (*domain.ExternalSettlement, error)
	// UpdateReversal persists Reversed and Status of a BET record.
	UpdateReversal(ctx context.Context, tx pgx.Tx, rec *domain.ExternalSettlement) error
}

// AuditRepository persists audit records.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
