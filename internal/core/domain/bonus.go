package domain

import (
	"time"

	"github.com/google/uuid"
)

type BonusStatus string

const (
	BonusStatusActive    BonusStatus = "ACTIVE"
	BonusStatusCompleted BonusStatus = "COMPLETED"
	BonusStatusExpired   BonusStatus = "EXPIRED"
	BonusStatusForfeited BonusStatus = "FORFEITED"
	BonusStatusCancelled BonusStatus = "CANCELLED"
)

// BonusGrant tracks wagering progress against a bonus credit.
type BonusGrant struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int64       `json:"user_id"`
	Amount      int64       `json:"amount"`
	Requirement int64       `json:"requirement"`
	Progress    int64       `json:"progress"`
	Status      BonusStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

func (g *BonusGrant) IsActive() bool {
	return g.Status == BonusStatusActive
}

// Expired reports whether an active grant has passed its deadline.
func (g *BonusGrant) Expired(now time.Time) bool {
	return g.IsActive() && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// AddProgress credits eligible wagering to an active grant, capped at the
// requirement, and completes the grant when the requirement is met.
// It returns true when this call completed the grant.
func (g *BonusGrant) AddProgress(amount int64, at time.Time) bool {
	if !g.IsActive() || amount <= 0 {
		return false
	}
	g.Progress += amount
	if g.Progress < g.Requirement {
		return false
	}
	g.Progress = g.Requirement
	g.Status = BonusStatusCompleted
	g.CompletedAt = &at
	return true
}
