package service

import (
	"context"
	"errors"
	"testing"

	"casino-core/internal/adapter/storage/memory"
	"casino-core/internal/core/domain"
	"casino-core/internal/core/ports/mocks"
	"casino-core/internal/fairness"
	"casino-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupSeedService(t *testing.T) (*SeedServiceImpl, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewSeedService(memory.NewSeedRepository(store), store, newTestCipher(t), zerolog.Nop()), store
}

func drawOnce(t *testing.T, svc *SeedServiceImpl, store *memory.Store, userID int64) *domain.SeedPair {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	pair, err := svc.Draw(ctx, tx, userID)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return pair
}

func TestSeedService_Current_CreatesLazily(t *testing.T) {
	svc, _ := setupSeedService(t)
	ctx := context.Background()

	first, err := svc.Current(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, first.ServerSeed)
	assert.Empty(t, first.ServerSeedEnc)
	assert.Len(t, first.ServerSeedHash, 64)
	assert.NotEmpty(t, first.ClientSeed)
	assert.Equal(t, int64(0), first.Nonce)

	again, err := svc.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestSeedService_Draw_AdvancesNonce(t *testing.T) {
	svc, store := setupSeedService(t)

	p0 := drawOnce(t, svc, store, 1)
	p1 := drawOnce(t, svc, store, 1)
	p2 := drawOnce(t, svc, store, 1)

	assert.Equal(t, p0.ID, p2.ID)
	assert.Equal(t, []int64{0, 1, 2}, []int64{p0.Nonce, p1.Nonce, p2.Nonce})
	assert.Equal(t, fairness.Commit(p0.ServerSeed), p0.ServerSeedHash)

	cur, err := svc.Current(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cur.Nonce)
}

func TestSeedService_Draw_RolledBackTxKeepsNonce(t *testing.T) {
	svc, store := setupSeedService(t)
	ctx := context.Background()
	drawOnce(t, svc, store, 1)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = svc.Draw(ctx, tx, 1)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, int64(1), drawOnce(t, svc, store, 1).Nonce)
}

func TestSeedService_Rotate_RevealsCommitment(t *testing.T) {
	svc, store := setupSeedService(t)
	ctx := context.Background()

	used := drawOnce(t, svc, store, 1)
	rot, err := svc.Rotate(ctx, 1, "my-new-seed")
	require.NoError(t, err)

	require.NotNil(t, rot.Revealed)
	assert.Equal(t, used.ID, rot.Revealed.ID)
	assert.Equal(t, used.ServerSeed, rot.Revealed.ServerSeed)
	assert.True(t, fairness.VerifyCommitment(rot.Revealed.ServerSeed, rot.Revealed.ServerSeedHash))
	assert.True(t, rot.Revealed.IsRevealed())

	assert.Equal(t, "my-new-seed", rot.Next.ClientSeed)
	assert.Equal(t, int64(0), rot.Next.Nonce)
	assert.Empty(t, rot.Next.ServerSeed)

	// the digest a bet used can be recomputed by anyone now
	d := fairness.Derive(used.ServerSeed, used.ClientSeed, used.Nonce)
	assert.True(t, fairness.Verify(rot.Revealed.ServerSeed, rot.Revealed.ClientSeed, used.Nonce, d.Hex()))

	next := drawOnce(t, svc, store, 1)
	assert.Equal(t, rot.Next.ID, next.ID)
	assert.Equal(t, int64(0), next.Nonce)
}

func TestSeedService_Rotate_WithoutActivePair(t *testing.T) {
	svc, _ := setupSeedService(t)

	rot, err := svc.Rotate(context.Background(), 5, "")
	require.NoError(t, err)
	assert.Nil(t, rot.Revealed)
	assert.NotEmpty(t, rot.Next.ClientSeed)
}

func TestSeedService_Rotate_ClientSeedTooLong(t *testing.T) {
	svc, _ := setupSeedService(t)

	long := make([]byte, maxClientSeedLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Rotate(context.Background(), 1, string(long))
	assert.True(t, apperror.HasCode(err, "BET_001"))
}

func TestSeedService_History(t *testing.T) {
	svc, store := setupSeedService(t)
	ctx := context.Background()

	drawOnce(t, svc, store, 1)
	_, err := svc.Rotate(ctx, 1, "a")
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, 1, "b")
	require.NoError(t, err)

	hist, err := svc.History(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	for _, p := range hist {
		assert.True(t, fairness.VerifyCommitment(p.ServerSeed, p.ServerSeedHash))
	}
	assert.Equal(t, "a", hist[0].ClientSeed)
}

func TestSeedService_Draw_TamperedCommitment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSeedRepository(ctrl)
	vault := mocks.NewMockEncryptionService(ctrl)
	svc := NewSeedService(repo, mocks.NewMockDBTransactor(ctrl), vault, zerolog.Nop())

	ctx := context.Background()
	tx := &mockTx{}
	pair := &domain.SeedPair{
		ID:             uuid.New(),
		UserID:         1,
		ServerSeedEnc:  "enc",
		ServerSeedHash: fairness.Commit("some-other-seed"),
		ClientSeed:     "c",
		Active:         true,
	}
	repo.EXPECT().GetActiveForUpdate(ctx, tx, int64(1)).Return(pair, nil)
	vault.EXPECT().Decrypt("enc").Return("the-real-seed", nil)
	// UpdateNonce must not be called

	_, err := svc.Draw(ctx, tx, 1)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, "FAIR_001"))
}

func TestSeedService_Draw_DecryptFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSeedRepository(ctrl)
	vault := mocks.NewMockEncryptionService(ctrl)
	svc := NewSeedService(repo, mocks.NewMockDBTransactor(ctrl), vault, zerolog.Nop())

	ctx := context.Background()
	tx := &mockTx{}
	repo.EXPECT().GetActiveForUpdate(ctx, tx, int64(1)).Return(&domain.SeedPair{ID: uuid.New(), ServerSeedEnc: "x", Active: true}, nil)
	vault.EXPECT().Decrypt("x").Return("", errors.New("bad tag"))

	_, err := svc.Draw(ctx, tx, 1)
	assert.True(t, apperror.HasCode(err, "SYS_003"))
}
