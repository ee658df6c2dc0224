package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionDeposit        AuditAction = "DEPOSIT"
	AuditActionWithdrawLock   AuditAction = "WITHDRAW_LOCK"
	AuditActionWithdrawReview AuditAction = "WITHDRAW_REVIEW"
	AuditActionBonus          AuditAction = "BONUS"
	AuditActionTransfer       AuditAction = "TRANSFER"
	AuditActionSeedRotate     AuditAction = "SEED_ROTATE"
	AuditActionSeamlessReject AuditAction = "SEAMLESS_REJECTED"
	AuditActionBetRejected    AuditAction = "BET_REJECTED"
	AuditActionSweep          AuditAction = "SWEEP"
)

// AuditLog records an audited action or a rejected operation that left no
// ledger entry behind.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *int64      `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
