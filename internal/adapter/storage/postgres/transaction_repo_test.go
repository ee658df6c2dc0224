package postgres

import (
	"context"
	"testing"
	"time"

	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(userID int64) *domain.Transaction {
	return &domain.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          domain.TxBet,
		Bucket:        domain.BucketReal,
		Amount:        -100,
		BalanceBefore: 1000,
		BalanceAfter:  900,
		Ref:           domain.BetRef(uuid.New()),
		Reason:        "bet",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func entryRows(entries ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "seq", "user_id", "type", "bucket", "counter", "amount",
		"balance_before", "balance_after", "ref_kind", "ref_id", "reason", "created_at"})
	for _, t := range entries {
		rows.AddRow(t.ID, t.Seq, t.UserID, t.Type, t.Bucket, t.Counter, t.Amount,
			t.BalanceBefore, t.BalanceAfter, t.Ref.Kind, t.Ref.ID, t.Reason, t.CreatedAt)
	}
	return rows
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	e := newTestEntry(1)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_entries .+ RETURNING seq").
		WithArgs(e.ID, e.UserID, e.Type, e.Bucket, e.Counter, e.Amount, e.BalanceBefore, e.BalanceAfter,
			e.Ref.Kind, e.Ref.ID, e.Reason, e.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(17)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), tx, e))
	assert.Equal(t, int64(17), e.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	lock := newTestEntry(1)
	lock.Type, lock.Bucket, lock.Counter, lock.Seq = domain.TxLock, domain.BucketLocked, domain.BucketReal, 2
	bet := newTestEntry(1)
	bet.Seq = 1

	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE user_id = .+ ORDER BY seq").
		WithArgs(int64(1)).
		WillReturnRows(entryRows(bet, lock))

	entries, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.BucketReal, entries[1].Counter)
	id, ok := entries[0].Ref.BetID()
	assert.True(t, ok)
	assert.NotEqual(t, uuid.Nil, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	typ := domain.TxBet
	bucket := domain.BucketReal
	from := int64(1700000000)
	e := newTestEntry(1)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(1), typ, bucket, from).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE .+ ORDER BY seq DESC LIMIT").
		WithArgs(int64(1), typ, bucket, from, 20, 0).
		WillReturnRows(entryRows(e))

	entries, total, err := repo.List(context.Background(), ports.TransactionListParams{
		UserID: 1, Type: &typ, Bucket: &bucket, From: &from, Page: 1, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries").
		WithArgs(int64(3), 10, 10).
		WillReturnRows(entryRows())

	entries, total, err := repo.List(context.Background(), ports.TransactionListParams{UserID: 3, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}
