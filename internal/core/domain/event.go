package domain

import "time"

// Event types published on the settlement stream.
const (
	EventBetSettled      = "bet.settled"
	EventSeamlessSettled = "seamless.settled"
)

// SettlementEvent is the message published after a settlement commits.
type SettlementEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Reference  Reference `json:"reference"`
	GameCode   string    `json:"game_code"`
	Amount     int64     `json:"amount"`
	Payout     int64     `json:"payout"`
	RealAfter  int64     `json:"real_after"`
	BonusAfter int64     `json:"bonus_after"`
	OccurredAt time.Time `json:"occurred_at"`
}
