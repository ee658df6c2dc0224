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

const bonusColumns = `id, user_id, amount, requirement, progress, status, created_at, completed_at, expires_at`

// BonusRepo implements ports.BonusRepository.
type BonusRepo struct {
	pool Pool
}

func NewBonusRepo(pool Pool) *BonusRepo {
	return &BonusRepo{pool: pool}
}

func (r *BonusRepo) Create(ctx context.Context, tx pgx.Tx, g *domain.BonusGrant) error {
	_, err := tx.Exec(ctx, `INSERT INTO bonus_grants (`+bonusColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		g.ID, g.UserID, g.Amount, g.Requirement, g.Progress, g.Status, g.CreatedAt, g.CompletedAt, g.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert bonus grant: %w", err)
	}
	return nil
}

func (r *BonusRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.BonusGrant, error) {
	g, err := scanGrant(tx.QueryRow(ctx, `SELECT `+bonusColumns+` FROM bonus_grants WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bonus grant: %w", err)
	}
	return g, nil
}

func (r *BonusRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.BonusGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bonusColumns+` FROM bonus_grants
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.BonusGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bonus grant: %w", err)
		}
		grants = append(grants, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bonus grants: %w", err)
	}
	return grants, nil
}

// ListActiveForUpdate locks a user's active grants, oldest first; wagering
// progress fills them in that order.
func (r *BonusRepo) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, userID int64) ([]domain.BonusGrant, error) {
	rows, err := tx.Query(ctx, `SELECT `+bonusColumns+` FROM bonus_grants
		WHERE user_id = $1 AND status = 'ACTIVE' ORDER BY created_at FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.BonusGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bonus grant: %w", err)
		}
		grants = append(grants, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bonus grants: %w", err)
	}
	return grants, nil
}

func (r *BonusRepo) Update(ctx context.Context, tx pgx.Tx, g *domain.BonusGrant) error {
	tag, err := tx.Exec(ctx, `UPDATE bonus_grants SET progress = $1, status = $2, completed_at = $3 WHERE id = $4`,
		g.Progress, g.Status, g.CompletedAt, g.ID)
	if err != nil {
		return fmt.Errorf("update bonus grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bonus grant %s not found", g.ID)
	}
	return nil
}

func scanGrant(row pgx.Row) (*domain.BonusGrant, error) {
	g := &domain.BonusGrant{}
	err := row.Scan(&g.ID, &g.UserID, &g.Amount, &g.Requirement, &g.Progress, &g.Status,
		&g.CreatedAt, &g.CompletedAt, &g.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}
