package dto

import (
	"encoding/json"
	"time"

	"casino-core/internal/core/domain"
)

// SeamlessEnvelope is the outer body of a provider callback.
type SeamlessEnvelope struct {
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// PlaceBetRequest starts an instant or multi-step round.
type PlaceBetRequest struct {
	Game   string          `json:"game" binding:"required,safe_id,max=32"`
	Amount int64           `json:"amount" binding:"required,gt=0"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RevealRequest opens one mines tile.
type RevealRequest struct {
	Tile *int `json:"tile" binding:"required,min=0"`
}

// GuessRequest is one hi-lo step.
type GuessRequest struct {
	Higher *bool `json:"higher" binding:"required"`
}

// CrashBetRequest joins the current crash round. AutoCashout 0 means manual.
type CrashBetRequest struct {
	Amount      int64   `json:"amount" binding:"required,gt=0"`
	AutoCashout float64 `json:"auto_cashout" binding:"omitempty,gt=1"`
}

// CrashCashOutRequest cashes out a running crash bet.
type CrashCashOutRequest struct {
	BetID string `json:"bet_id" binding:"required,uuid"`
}

// RotateSeedRequest reveals the active pair and commits a new one.
type RotateSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"omitempty,safe_id,max=64"`
}

// VerifyRequest re-derives a bet from its revealed seeds.
type VerifyRequest struct {
	ServerSeed     string          `json:"server_seed" binding:"required,hexadecimal,len=64"`
	ServerSeedHash string          `json:"server_seed_hash" binding:"required,hexadecimal,len=64"`
	ClientSeed     string          `json:"client_seed" binding:"required,max=64"`
	Nonce          int64           `json:"nonce" binding:"min=0"`
	Game           string          `json:"game" binding:"omitempty,safe_id"`
	Params         json.RawMessage `json:"params,omitempty"`
}

// VerifyResponse reports the commitment check and the re-derived result.
type VerifyResponse struct {
	CommitmentValid bool    `json:"commitment_valid"`
	Digest          string  `json:"digest"`
	Float           float64 `json:"float"`
	Multiplier      float64 `json:"multiplier,omitempty"`
	Outcome         any     `json:"outcome,omitempty"`
}

// SeedResponse is the public view of a seed pair. ServerSeed is only set
// once the pair has been revealed.
type SeedResponse struct {
	ServerSeedHash string     `json:"server_seed_hash"`
	ServerSeed     string     `json:"server_seed,omitempty"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          int64      `json:"nonce"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// RotateSeedResponse pairs the revealed seed with its successor.
type RotateSeedResponse struct {
	Revealed SeedResponse `json:"revealed"`
	Next     SeedResponse `json:"next"`
}

// RoundView is a multi-step round as the player may see it. Mine positions
// and undealt cards stay hidden until settlement.
type RoundView struct {
	BetID      string    `json:"bet_id"`
	GameCode   string    `json:"game_code"`
	Amount     int64     `json:"amount"`
	Revealed   []int     `json:"revealed,omitempty"`
	Mines      int       `json:"mines,omitempty"`
	Cards      []int     `json:"cards,omitempty"`
	Step       int       `json:"step"`
	Multiplier float64   `json:"multiplier"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// BetResponse is the state after a bet action.
type BetResponse struct {
	Bet    *domain.Bet    `json:"bet"`
	Round  *RoundView     `json:"round,omitempty"`
	Wallet WalletResponse `json:"wallet"`
}

// WalletResponse is a wallet snapshot.
type WalletResponse struct {
	UserID   int64  `json:"user_id"`
	Currency string `json:"currency"`
	Real     int64  `json:"real"`
	Bonus    int64  `json:"bonus"`
	Locked   int64  `json:"locked"`
	Playable int64  `json:"playable"`
}

// StatementResponse wraps a paginated ledger statement.
type StatementResponse struct {
	Items      []domain.Transaction `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// StatementQuery holds the statement filters.
type StatementQuery struct {
	Type     string `form:"type" binding:"omitempty,oneof=CREDIT DEBIT BET WIN REFUND LOCK UNLOCK RELEASE TRANSFER_OUT TRANSFER_IN BONUS_GRANT BONUS_FORFEIT BONUS_CONVERSION"`
	Bucket   string `form:"bucket" binding:"omitempty,oneof=real bonus locked"`
	From     *int64 `form:"from" binding:"omitempty,min=0"`
	To       *int64 `form:"to" binding:"omitempty,min=0"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OpenWalletRequest creates a player wallet.
type OpenWalletRequest struct {
	Currency string `json:"currency" binding:"required,len=3,alpha"`
}

// AmountRequest moves money for one player. Reference is the back-office
// id of the deposit or withdrawal.
type AmountRequest struct {
	Reference string `json:"reference" binding:"required,safe_id,max=64"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"max=200"`
}

// GrantBonusRequest credits bonus money with a wagering requirement.
type GrantBonusRequest struct {
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Requirement int64      `json:"requirement" binding:"min=0"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// TransferRequest moves real money between two players.
type TransferRequest struct {
	FromUserID int64  `json:"from_user_id" binding:"required,gt=0"`
	ToUserID   int64  `json:"to_user_id" binding:"required,gt=0,nefield=FromUserID"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	Reason     string `json:"reason" binding:"max=200"`
}

// SessionResponse carries a player token issued by the cashier.
type SessionResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}
