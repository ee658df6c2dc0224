package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BetStatus represents the lifecycle state of a bet.
type BetStatus string

const (
	BetStatusPending   BetStatus = "PENDING"
	BetStatusCompleted BetStatus = "COMPLETED"
	BetStatusCancelled BetStatus = "CANCELLED"
)

// Bet is one wager. Amount, split and the seed snapshot are fixed at creation;
// the outcome fields are written exactly once, at settlement.
type Bet struct {
	ID         uuid.UUID       `json:"id"`
	UserID     int64           `json:"user_id"`
	GameCode   string          `json:"game_code"`
	Amount     int64           `json:"amount"`
	Split      BetSplit        `json:"split"`
	SeedHash   string          `json:"server_seed_hash,omitempty"`
	ClientSeed string          `json:"client_seed,omitempty"`
	Nonce      int64           `json:"nonce"`
	Params     json.RawMessage `json:"params,omitempty"`
	Outcome    json.RawMessage `json:"outcome,omitempty"`
	Multiplier float64         `json:"multiplier"`
	Payout     int64           `json:"payout"`
	Profit     int64           `json:"profit"`
	Status     BetStatus       `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	SettledAt  *time.Time      `json:"settled_at,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

// IsTerminal returns true once the bet is completed or cancelled.
func (b *Bet) IsTerminal() bool {
	return b.Status == BetStatusCompleted || b.Status == BetStatusCancelled
}

// Expired reports whether a pending bet has outlived its round state.
func (b *Bet) Expired(now time.Time) bool {
	return b.Status == BetStatusPending && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// Complete fills the settlement fields. Callers persist it with a
// conditional update so it can only land once.
func (b *Bet) Complete(outcome json.RawMessage, multiplier float64, payout int64, at time.Time) {
	b.Outcome = outcome
	b.Multiplier = multiplier
	b.Payout = payout
	b.Profit = payout - b.Amount
	b.Status = BetStatusCompleted
	b.SettledAt = &at
}
