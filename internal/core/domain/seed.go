package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeedPair is a user's provably-fair commitment: a secret server seed
// published as its hash, a client seed and a per-bet nonce.
type SeedPair struct {
	ID             uuid.UUID  `json:"id"`
	UserID         int64      `json:"user_id"`
	ServerSeed     string     `json:"-"` // plaintext, only in memory
	ServerSeedEnc  string     `json:"-"` // AES-256-GCM at rest
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          int64      `json:"nonce"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// IsRevealed returns true once the pair has been rotated out.
func (s *SeedPair) IsRevealed() bool {
	return s.RevealedAt != nil
}
