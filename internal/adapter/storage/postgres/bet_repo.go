package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const betColumns = `id, user_id, game_code, amount, split_real, split_bonus, seed_hash, client_seed, nonce,
	params, outcome, multiplier, payout, profit, status, created_at, settled_at, expires_at`

// BetRepo implements ports.BetRepository.
type BetRepo struct {
	pool Pool
}

func NewBetRepo(pool Pool) *BetRepo {
	return &BetRepo{pool: pool}
}

func (r *BetRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Bet) error {
	query := `INSERT INTO bets (` + betColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.UserID, b.GameCode, b.Amount, b.Split.Real, b.Split.Bonus, b.SeedHash, b.ClientSeed, b.Nonce,
		jsonArg(b.Params), jsonArg(b.Outcome), b.Multiplier, b.Payout, b.Profit, b.Status,
		b.CreatedAt, b.SettledAt, b.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

func (r *BetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	b, err := scanBet(r.pool.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

// Settle is the single-shot transition out of PENDING. It reports false when
// another writer got there first.
func (r *BetRepo) Settle(ctx context.Context, tx pgx.Tx, b *domain.Bet) (bool, error) {
	query := `UPDATE bets SET status = $1, outcome = $2, multiplier = $3, payout = $4, profit = $5, settled_at = $6
		WHERE id = $7 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query,
		b.Status, jsonArg(b.Outcome), b.Multiplier, b.Payout, b.Profit, b.SettledAt, b.ID,
	)
	if err != nil {
		return false, fmt.Errorf("settle bet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredPending returns pending bets whose round state has lapsed, oldest first.
func (r *BetRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Bet, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+betColumns+` FROM bets
		WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}
	return bets, nil
}

func scanBet(row pgx.Row) (*domain.Bet, error) {
	b := &domain.Bet{}
	var params, outcome []byte
	err := row.Scan(
		&b.ID, &b.UserID, &b.GameCode, &b.Amount, &b.Split.Real, &b.Split.Bonus, &b.SeedHash, &b.ClientSeed, &b.Nonce,
		&params, &outcome, &b.Multiplier, &b.Payout, &b.Profit, &b.Status,
		&b.CreatedAt, &b.SettledAt, &b.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	b.Params, b.Outcome = params, outcome
	return b, nil
}

// jsonArg sends an empty document as SQL NULL.
func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
