package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SettlementKind distinguishes bet/win callbacks from rollbacks.
type SettlementKind string

const (
	SettlementKindBet      SettlementKind = "BET"
	SettlementKindRollback SettlementKind = "ROLLBACK"
)

type SettlementStatus string

const (
	SettlementStatusApplied    SettlementStatus = "APPLIED"
	// SettlementStatusRolledBack marks a BET callback with nothing left to reverse.
	SettlementStatusRolledBack SettlementStatus = "ROLLED_BACK"
)

// Reversal is what rollbacks have returned of a BET callback so far.
type Reversal struct {
	Stake BetSplit `json:"stake"`
	Win   int64    `json:"win"`
}

// ExternalSettlement is the idempotency record of one provider callback.
// (Provider, SerialNumber) is unique; ResponseJSON is the plaintext response
// payload returned to every replay.
type ExternalSettlement struct {
	ID            uuid.UUID        `json:"id"`
	Provider      string           `json:"provider"`
	SerialNumber  string           `json:"serial_number"`
	Kind          SettlementKind   `json:"kind"`
	UserID        int64            `json:"user_id"`
	MemberAccount string           `json:"member_account"`
	GameUID       string           `json:"game_uid"`
	GameRound     string           `json:"game_round"`
	Currency      string           `json:"currency"`
	BetAmount     int64            `json:"bet_amount"`
	WinAmount     int64            `json:"win_amount"`
	Split         BetSplit         `json:"split"`
	Reversed      Reversal         `json:"reversed"`
	BalanceBefore int64            `json:"balance_before"`
	BalanceAfter  int64            `json:"balance_after"`
	Status        SettlementStatus `json:"status"`
	ResponseJSON  []byte           `json:"response_json"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Remaining returns the stake and win of a BET callback that no rollback
// has returned yet.
func (s *ExternalSettlement) Remaining() (BetSplit, int64) {
	stake := BetSplit{Real: s.Split.Real - s.Reversed.Stake.Real, Bonus: s.Split.Bonus - s.Reversed.Stake.Bonus}
	return stake, max(s.WinAmount, 0) - s.Reversed.Win
}

// Reverse takes stake and win out of what remains of a BET callback. The
// stake comes back bonus first so a partial refund never turns bonus into
// real. It returns the buckets the stake refund goes to.
func (s *ExternalSettlement) Reverse(stake, win int64) (BetSplit, error) {
	left, leftWin := s.Remaining()
	if stake < 0 || win < 0 || stake > left.Total() || win > leftWin {
		return BetSplit{}, ErrRollbackExceedsRound
	}
	refund := BetSplit{Bonus: min(stake, left.Bonus)}
	refund.Real = stake - refund.Bonus

	s.Reversed.Stake.Real += refund.Real
	s.Reversed.Stake.Bonus += refund.Bonus
	s.Reversed.Win += win
	if left.Total() == stake && leftWin == win {
		s.Status = SettlementStatusRolledBack
	}
	return refund, nil
}

// SettlementKey is the idempotency key of a provider callback.
func SettlementKey(provider, serial string) string {
	return provider + ":" + serial
}

// ErrDuplicateSettlement is returned by storage when (provider, serial)
// already exists.
var ErrDuplicateSettlement = errors.New("external settlement already recorded")

// ErrRollbackExceedsRound is returned when a rollback asks for more than the
// round has left.
var ErrRollbackExceedsRound = errors.New("rollback exceeds what remains of the round")
