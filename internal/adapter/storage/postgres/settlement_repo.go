package postgres

import (
	"context"
	"errors"
	"fmt"

	"casino-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const settlementColumns = `id, provider, serial_number, kind, user_id, member_account, game_uid, game_round,
	currency, bet_amount, win_amount, bet_real, bet_bonus, reversed_real, reversed_bonus, reversed_win,
	balance_before, balance_after, status, response_json, created_at`

// SettlementRepo implements ports.SettlementRepository. The unique key on
// (provider, serial_number) is the last line of callback idempotency.
type SettlementRepo struct {
	pool Pool
}

func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

func (r *SettlementRepo) Get(ctx context.Context, provider, serial string) (*domain.ExternalSettlement, error) {
	return r.get(ctx, r.pool, provider, serial)
}

// GetInTx reads through the session's transaction so a row committed while
// we waited on the wallet lock is visible.
func (r *SettlementRepo) GetInTx(ctx context.Context, tx pgx.Tx, provider, serial string) (*domain.ExternalSettlement, error) {
	return r.get(ctx, tx, provider, serial)
}

func (r *SettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.ExternalSettlement) error {
	_, err := tx.Exec(ctx, `INSERT INTO external_settlements (`+settlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		s.ID, s.Provider, s.SerialNumber, s.Kind, s.UserID, s.MemberAccount, s.GameUID, s.GameRound,
		s.Currency, s.BetAmount, s.WinAmount, s.Split.Real, s.Split.Bonus,
		s.Reversed.Stake.Real, s.Reversed.Stake.Bonus, s.Reversed.Win,
		s.BalanceBefore, s.BalanceAfter, s.Status, s.ResponseJSON, s.CreatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "external_settlements_provider_serial_key") {
			return domain.ErrDuplicateSettlement
		}
		return fmt.Errorf("insert external settlement: %w", err)
	}
	return nil
}

// FindRound returns the latest BET callback of a provider round that is not
// fully rolled back, falling back to the latest one. The row is locked.
func (r *SettlementRepo) FindRound(ctx context.Context, tx pgx.Tx, provider string, userID int64, gameRound string) (*domain.ExternalSettlement, error) {
	s, err := scanSettlement(tx.QueryRow(ctx, `SELECT `+settlementColumns+` FROM external_settlements
		WHERE provider = $1 AND user_id = $2 AND game_round = $3 AND kind = 'BET'
		ORDER BY (status = 'APPLIED') DESC, seq DESC LIMIT 1 FOR UPDATE`, provider, userID, gameRound))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find round: %w", err)
	}
	return s, nil
}

func (r *SettlementRepo) UpdateReversal(ctx context.Context, tx pgx.Tx, s *domain.ExternalSettlement) error {
	tag, err := tx.Exec(ctx, `UPDATE external_settlements
		SET reversed_real = $1, reversed_bonus = $2, reversed_win = $3, status = $4
		WHERE id = $5`,
		s.Reversed.Stake.Real, s.Reversed.Stake.Bonus, s.Reversed.Win, s.Status, s.ID)
	if err != nil {
		return fmt.Errorf("update settlement reversal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settlement %s not found", s.ID)
	}
	return nil
}

func (r *SettlementRepo) get(ctx context.Context, q queryRower, provider, serial string) (*domain.ExternalSettlement, error) {
	s, err := scanSettlement(q.QueryRow(ctx, `SELECT `+settlementColumns+` FROM external_settlements
		WHERE provider = $1 AND serial_number = $2`, provider, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get external settlement: %w", err)
	}
	return s, nil
}

func scanSettlement(row pgx.Row) (*domain.ExternalSettlement, error) {
	s := &domain.ExternalSettlement{}
	err := row.Scan(&s.ID, &s.Provider, &s.SerialNumber, &s.Kind, &s.UserID, &s.MemberAccount, &s.GameUID, &s.GameRound,
		&s.Currency, &s.BetAmount, &s.WinAmount, &s.Split.Real, &s.Split.Bonus,
		&s.Reversed.Stake.Real, &s.Reversed.Stake.Bonus, &s.Reversed.Win,
		&s.BalanceBefore, &s.BalanceAfter, &s.Status, &s.ResponseJSON, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
