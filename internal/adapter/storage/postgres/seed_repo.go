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

const seedColumns = `id, user_id, server_seed_enc, server_seed_hash, client_seed, nonce, active, created_at, revealed_at`

// SeedRepo implements ports.SeedRepository. Only the encrypted server seed
// is stored; seed_pairs_one_active enforces one active pair per user.
type SeedRepo struct {
	pool Pool
}

func NewSeedRepo(pool Pool) *SeedRepo {
	return &SeedRepo{pool: pool}
}

func (r *SeedRepo) GetActive(ctx context.Context, userID int64) (*domain.SeedPair, error) {
	return r.getActive(ctx, r.pool, userID, "")
}

func (r *SeedRepo) GetActiveForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error) {
	return r.getActive(ctx, tx, userID, " FOR UPDATE")
}

func (r *SeedRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.SeedPair) error {
	_, err := tx.Exec(ctx, `INSERT INTO seed_pairs (`+seedColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.ServerSeedEnc, p.ServerSeedHash, p.ClientSeed, p.Nonce, p.Active, p.CreatedAt, p.RevealedAt,
	)
	if err != nil {
		if uniqueViolation(err, "seed_pairs_one_active") {
			return fmt.Errorf("user %d already has an active seed pair: %w", p.UserID, err)
		}
		return fmt.Errorf("insert seed pair: %w", err)
	}
	return nil
}

// UpdateNonce only moves the nonce forward on an active pair.
func (r *SeedRepo) UpdateNonce(ctx context.Context, tx pgx.Tx, id uuid.UUID, nonce int64) error {
	tag, err := tx.Exec(ctx, `UPDATE seed_pairs SET nonce = $1 WHERE id = $2 AND active AND nonce <= $1`, nonce, id)
	if err != nil {
		return fmt.Errorf("update nonce: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seed pair %s: not active or nonce would decrease", id)
	}
	return nil
}

func (r *SeedRepo) Reveal(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE seed_pairs SET active = FALSE, revealed_at = $1 WHERE id = $2 AND active`, at, id)
	if err != nil {
		return fmt.Errorf("reveal seed pair: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seed pair %s is already revealed", id)
	}
	return nil
}

func (r *SeedRepo) ListRevealed(ctx context.Context, userID int64, limit int) ([]domain.SeedPair, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+seedColumns+` FROM seed_pairs
		WHERE user_id = $1 AND NOT active ORDER BY revealed_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revealed seeds: %w", err)
	}
	defer rows.Close()

	var pairs []domain.SeedPair
	for rows.Next() {
		p, err := scanSeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seed pair: %w", err)
		}
		pairs = append(pairs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seed pairs: %w", err)
	}
	return pairs, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *SeedRepo) getActive(ctx context.Context, q queryRower, userID int64, suffix string) (*domain.SeedPair, error) {
	p, err := scanSeed(q.QueryRow(ctx, `SELECT `+seedColumns+` FROM seed_pairs WHERE user_id = $1 AND active`+suffix, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active seed pair: %w", err)
	}
	return p, nil
}

func scanSeed(row pgx.Row) (*domain.SeedPair, error) {
	p := &domain.SeedPair{}
	err := row.Scan(&p.ID, &p.UserID, &p.ServerSeedEnc, &p.ServerSeedHash, &p.ClientSeed, &p.Nonce,
		&p.Active, &p.CreatedAt, &p.RevealedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
