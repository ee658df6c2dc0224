package postgres

import (
	"context"
	"errors"
	"fmt"

	"casino-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// Directory implements ports.UserDirectory over the players table. A wallet
// without a players row belongs to an active player at VIP level 0.
type Directory struct {
	pool Pool
}

func NewDirectory(pool Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) GetPlayer(ctx context.Context, userID int64) (*domain.Player, error) {
	query := `SELECT w.user_id, COALESCE(p.active, TRUE), COALESCE(p.vip_level, 0)
		FROM wallets w LEFT JOIN players p ON p.id = w.user_id
		WHERE w.user_id = $1
		UNION ALL
		SELECT p.id, p.active, p.vip_level FROM players p
		WHERE p.id = $1 AND NOT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`

	p := &domain.Player{}
	err := d.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.Active, &p.VIPLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}
