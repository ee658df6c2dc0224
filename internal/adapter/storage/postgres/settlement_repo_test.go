package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettlement() *domain.ExternalSettlement {
	return &domain.ExternalSettlement{
		ID:            uuid.New(),
		Provider:      "acme",
		SerialNumber:  "S-1",
		Kind:          domain.SettlementKindBet,
		UserID:        1,
		MemberAccount: "cas_1",
		GameUID:       "slot-7",
		GameRound:     "R-1",
		Currency:      "USD",
		BetAmount:     1000,
		WinAmount:     2500,
		Split:         domain.BetSplit{Real: 600, Bonus: 400},
		BalanceBefore: 10000,
		BalanceAfter:  11500,
		Status:        domain.SettlementStatusApplied,
		ResponseJSON:  []byte(`{"credit_amount":"115.00","timestamp":"1"}`),
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func settlementRows(recs ...*domain.ExternalSettlement) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "provider", "serial_number", "kind", "user_id", "member_account",
		"game_uid", "game_round", "currency", "bet_amount", "win_amount", "bet_real", "bet_bonus",
		"reversed_real", "reversed_bonus", "reversed_win", "balance_before", "balance_after",
		"status", "response_json", "created_at"})
	for _, s := range recs {
		rows.AddRow(s.ID, s.Provider, s.SerialNumber, s.Kind, s.UserID, s.MemberAccount, s.GameUID, s.GameRound,
			s.Currency, s.BetAmount, s.WinAmount, s.Split.Real, s.Split.Bonus,
			s.Reversed.Stake.Real, s.Reversed.Stake.Bonus, s.Reversed.Win,
			s.BalanceBefore, s.BalanceAfter, s.Status, s.ResponseJSON, s.CreatedAt)
	}
	return rows
}

func TestSettlementRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettlementRepo(mock)
	s := newTestSettlement()
	mock.ExpectQuery("SELECT .+ FROM external_settlements\\s+WHERE provider = .+ AND serial_number").
		WithArgs("acme", "S-1").
		WillReturnRows(settlementRows(s))

	got, err := repo.Get(context.Background(), "acme", "S-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ResponseJSON, got.ResponseJSON)
	assert.Equal(t, int64(11500), got.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementRepo_GetInTx_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettlementRepo(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM external_settlements").
		WithArgs("acme", "S-2").
		WillReturnRows(settlementRows())

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	got, err := repo.GetInTx(context.Background(), tx, "acme", "S-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettlementRepo_Create(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
		wantMsg string
	}{
		{"inserted", nil, nil, ""},
		{"duplicate serial", &pgconn.PgError{Code: "23505", ConstraintName: "external_settlements_provider_serial_key"}, domain.ErrDuplicateSettlement, ""},
		{"other failure", errors.New("connection reset"), nil, "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewSettlementRepo(mock)
			s := newTestSettlement()
			mock.ExpectBegin()
			exec := mock.ExpectExec("INSERT INTO external_settlements").WithArgs(anyArgs(21)...)
			if tt.dbErr != nil {
				exec.WillReturnError(tt.dbErr)
			} else {
				exec.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			tx, err := mock.Begin(context.Background())
			require.NoError(t, err)
			err = repo.Create(context.Background(), tx, s)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				assert.ErrorContains(t, err, tt.wantMsg)
				assert.NotErrorIs(t, err, domain.ErrDuplicateSettlement)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSettlementRepo_FindRound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettlementRepo(mock)
	s := newTestSettlement()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM external_settlements\\s+WHERE provider .+ AND kind = 'BET'\\s+ORDER BY \\(status = 'APPLIED'\\) DESC, seq DESC LIMIT 1 FOR UPDATE").
		WithArgs("acme", int64(1), "R-1").
		WillReturnRows(settlementRows(s))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	got, err := repo.FindRound(context.Background(), tx, "acme", 1, "R-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.SerialNumber, got.SerialNumber)
	assert.Equal(t, domain.BetSplit{Real: 600, Bonus: 400}, got.Split)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementRepo_UpdateReversal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettlementRepo(mock)
	s := newTestSettlement()
	_, err = s.Reverse(1000, 2500)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE external_settlements\\s+SET reversed_real").
		WithArgs(int64(600), int64(400), int64(2500), domain.SettlementStatusRolledBack, s.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE external_settlements").
		WithArgs(anyArgs(5)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateReversal(context.Background(), tx, s))
	assert.ErrorContains(t, repo.UpdateReversal(context.Background(), tx, s), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
