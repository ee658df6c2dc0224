package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundState is the side-store state of a multi-step game between actions.
// It never carries money; the bet row and the ledger do.
//
// Mines: Layout holds mine positions, Revealed the safe tiles opened so far.
// HiLo: Layout holds the cards dealt so far, the last one face up.
type RoundState struct {
	BetID      uuid.UUID `json:"bet_id"`
	UserID     int64     `json:"user_id"`
	GameCode   string    `json:"game_code"`
	Amount     int64     `json:"amount"`
	Layout     []int     `json:"layout"`
	Revealed   []int     `json:"revealed"`
	Step       int       `json:"step"`
	Multiplier float64   `json:"multiplier"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HasRevealed reports whether tile was already opened.
func (r *RoundState) HasRevealed(tile int) bool {
	for _, t := range r.Revealed {
		if t == tile {
			return true
		}
	}
	return false
}
