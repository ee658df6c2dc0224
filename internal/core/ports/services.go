package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"encoding/json"
	"time"

	"casino-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles player JWT operations.
type TokenService interface {
	Generate(userID int64) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID int64
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, clientID string, nonce string, ttl time.Duration) (bool, error)
}

// RoundStore holds the side state of multi-step games. Entries expire at
// RoundState.ExpiresAt; a missing entry means the round is gone.
type RoundStore interface {
	Get(ctx context.Context, betID uuid.UUID) (*domain.RoundState, error)
	Save(ctx context.Context, state *domain.RoundState) error
	Delete(ctx context.Context, betID uuid.UUID) error
}

// UserDirectory is the read side of user management.
type UserDirectory interface {
	GetPlayer(ctx context.Context, userID int64) (*domain.Player, error)
}

// EventPublisher emits settlement events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SettlementEvent) error
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// Metrics receives business counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	BetSettled(game string, stake, payout int64)
	BetRejected(game string, code string)
	SeamlessCallback(provider string, kind string, code int)
	CrashRound(burst float64)
}

// --- Service Ports (Business Logic) ---

// LedgerService is the money API used by the cashier and player routes.
type LedgerService interface {
	OpenWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error)
	Balance(ctx context.Context, userID int64) (*domain.Wallet, error)
	Credit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error)
	Debit(ctx context.Context, userID int64, amount int64, bucket domain.Bucket, reason string, ref domain.Reference) (domain.LedgerEffect, error)
	Lock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error)
	Unlock(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error)
	ReleaseLocked(ctx context.Context, userID int64, amount int64, ref domain.Reference) (domain.LedgerEffect, error)
	Transfer(ctx context.Context, fromUser, toUser int64, amount int64, reason string) (*TransferResult, error)
	GrantBonus(ctx context.Context, req GrantBonusRequest) (*domain.BonusGrant, domain.LedgerEffect, error)
	ForfeitBonus(ctx context.Context, grantID uuid.UUID) (*domain.BonusGrant, domain.LedgerEffect, error)
	Reconcile(ctx context.Context, userID int64) (*ReconcileReport, error)
	Statement(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransferResult holds both sides of a transfer.
type TransferResult struct {
	ID   uuid.UUID           `json:"id"`
	From domain.LedgerEffect `json:"from"`
	To   domain.LedgerEffect `json:"to"`
}

// GrantBonusRequest holds validated input for a bonus grant.
type GrantBonusRequest struct {
	UserID      int64
	Amount      int64
	Requirement int64
	ExpiresAt   *time.Time
}

// ReconcileReport compares the stored wallet with a replay of its log.
type ReconcileReport struct {
	UserID   int64           `json:"user_id"`
	Stored   domain.Balances `json:"stored"`
	Replayed domain.Balances `json:"replayed"`
	Entries  int             `json:"entries"`
	Balanced bool            `json:"balanced"`
}

// SeedService manages provably-fair seed pairs.
type SeedService interface {
	Current(ctx context.Context, userID int64) (*domain.SeedPair, error)
	Rotate(ctx context.Context, userID int64, clientSeed string) (*SeedRotation, error)
	// Draw locks the active pair inside tx, returns it with the nonce to use
	// and advances the stored nonce.
	Draw(ctx context.Context, tx pgx.Tx, userID int64) (*domain.SeedPair, error)
	History(ctx context.Context, userID int64, limit int) ([]domain.SeedPair, error)
}

// SeedRotation is the result of a rotation: the revealed pair (with its
// plaintext server seed) and the newly committed one.
type SeedRotation struct {
	Revealed *domain.SeedPair
	Next     *domain.SeedPair
}

// BetService runs the shared bet lifecycle of internal games.
type BetService interface {
	PlaceBet(ctx context.Context, req PlaceBetRequest) (*BetResult, error)
	Reveal(ctx context.Context, userID int64, betID uuid.UUID, tile int) (*BetResult, error)
	Guess(ctx context.Context, userID int64, betID uuid.UUID, higher bool) (*BetResult, error)
	CashOut(ctx context.Context, userID int64, betID uuid.UUID) (*BetResult, error)
	CancelBet(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error)
	GetBet(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error)
}

// PlaceBetRequest holds validated input for a new bet.
type PlaceBetRequest struct {
	UserID   int64
	GameCode string
	Amount   int64
	Params   json.RawMessage
}

// BetResult is the state a player sees after a bet action. Round is nil
// once the bet is settled.
type BetResult struct {
	Bet    *domain.Bet        `json:"bet"`
	Round  *domain.RoundState `json:"round,omitempty"`
	Wallet domain.Wallet      `json:"wallet"`
}

// CrashService is the player-facing side of the crash round driver.
type CrashService interface {
	PlaceBet(ctx context.Context, userID int64, amount int64, autoCashout float64) (*domain.Bet, error)
	CashOut(ctx context.Context, userID int64, betID uuid.UUID) (*domain.Bet, error)
	Current() domain.CrashRound
	History(limit int) []domain.CrashRound
}

// GatewayService terminates seamless-wallet provider callbacks. It never
// returns an error: failures are folded into the reply envelope.
type GatewayService interface {
	Handle(ctx context.Context, req SeamlessRequest) SeamlessReply
}

// CallbackKind names the provider callback endpoint.
type CallbackKind string

const (
	CallbackBet      CallbackKind = "bet"
	CallbackRollback CallbackKind = "rollback"
	CallbackBalance  CallbackKind = "balance"
)

// SeamlessRequest is an undecrypted provider callback.
type SeamlessRequest struct {
	Provider  string
	Kind      CallbackKind
	Timestamp string
	Payload   string
	ClientIP  string
}

// SeamlessReply is the envelope returned to the provider.
type SeamlessReply struct {
	Code    int
	Msg     string
	Payload string
}
