package postgres

import (
	"context"
	"fmt"
	"strings"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, seq, user_id, type, bucket, counter, amount, balance_before, balance_after,
	ref_kind, ref_id, reason, created_at`

// TransactionRepo implements ports.TransactionRepository over the append-only
// ledger_entries table.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends an entry and fills in its sequence number.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO ledger_entries (id, user_id, type, bucket, counter, amount, balance_before, balance_after,
		ref_kind, ref_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		t.ID, t.UserID, t.Type, t.Bucket, t.Counter, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Ref.Kind, t.Ref.ID, t.Reason, t.CreatedAt,
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns every entry of a wallet in ledger order. Reconcile
// replays this list.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return scanEntries(rows)
}

// List fetches a page of a user's entries, newest first.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	conditions := []string{"user_id = $1"}
	args := []any{params.UserID}
	argIdx := 2

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Bucket != nil {
		conditions = append(conditions, fmt.Sprintf("(bucket = $%d OR counter = $%d)", argIdx, argIdx))
		args = append(args, *params.Bucket)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY seq DESC LIMIT $%d OFFSET $%d`,
		entryColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func scanEntries(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()

	entries := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.Seq, &t.UserID, &t.Type, &t.Bucket, &t.Counter, &t.Amount,
			&t.BalanceBefore, &t.BalanceAfter, &t.Ref.Kind, &t.Ref.ID, &t.Reason, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
