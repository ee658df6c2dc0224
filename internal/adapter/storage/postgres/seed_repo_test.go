package postgres

import (
	"context"
	"testing"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSeed(active bool) *domain.SeedPair {
	p := &domain.SeedPair{
		ID:             uuid.New(),
		UserID:         1,
		ServerSeedEnc:  "sealed",
		ServerSeedHash: "hash",
		ClientSeed:     "client",
		Nonce:          4,
		Active:         active,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if !active {
		at := p.CreatedAt.Add(time.Hour)
		p.RevealedAt = &at
	}
	return p
}

func seedRows(pairs ...*domain.SeedPair) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "user_id", "server_seed_enc", "server_seed_hash", "client_seed",
		"nonce", "active", "created_at", "revealed_at"})
	for _, p := range pairs {
		rows.AddRow(p.ID, p.UserID, p.ServerSeedEnc, p.ServerSeedHash, p.ClientSeed, p.Nonce, p.Active, p.CreatedAt, p.RevealedAt)
	}
	return rows
}

func TestSeedRepo_GetActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	p := newTestSeed(true)
	mock.ExpectQuery("SELECT .+ FROM seed_pairs WHERE user_id = .+ AND active$").
		WithArgs(int64(1)).
		WillReturnRows(seedRows(p))

	got, err := repo.GetActive(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sealed", got.ServerSeedEnc)
	assert.Empty(t, got.ServerSeed, "plaintext never comes from storage")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedRepo_GetActiveForUpdate_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM seed_pairs .+ FOR UPDATE").
		WithArgs(int64(1)).
		WillReturnRows(seedRows())

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	got, err := repo.GetActiveForUpdate(context.Background(), tx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSeedRepo_Create_SecondActivePair(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO seed_pairs").
		WithArgs(anyArgs(9)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "seed_pairs_one_active"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	err = repo.Create(context.Background(), tx, newTestSeed(true))
	assert.ErrorContains(t, err, "already has an active seed pair")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedRepo_UpdateNonce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seed_pairs SET nonce").WithArgs(int64(5), id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE seed_pairs SET nonce").WithArgs(int64(2), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	assert.NoError(t, repo.UpdateNonce(context.Background(), tx, id, 5))
	assert.ErrorContains(t, repo.UpdateNonce(context.Background(), tx, id, 2), "nonce would decrease")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedRepo_Reveal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seed_pairs SET active = FALSE").WithArgs(at, id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE seed_pairs SET active = FALSE").WithArgs(at, id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	assert.NoError(t, repo.Reveal(context.Background(), tx, id, at))
	assert.ErrorContains(t, repo.Reveal(context.Background(), tx, id, at), "already revealed")
}

func TestSeedRepo_ListRevealed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSeedRepo(mock)
	p := newTestSeed(false)
	mock.ExpectQuery("SELECT .+ FROM seed_pairs\\s+WHERE user_id = .+ AND NOT active").
		WithArgs(int64(1), 10).
		WillReturnRows(seedRows(p))

	pairs, err := repo.ListRevealed(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].IsRevealed())
}
