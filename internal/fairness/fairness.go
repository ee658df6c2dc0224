// Package fairness derives provably-fair outcomes from a committed server
// seed, a client seed and a nonce.
//
// Every value is a pure function of its inputs: HMAC-SHA256 keyed with the
// server seed over "clientSeed:nonce" (and "clientSeed:nonce:round" for the
// extended stream). Anyone holding the revealed server seed can recompute it.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrMissingCommitment = errors.New("server seed commitment missing")
	ErrCommitMismatch    = errors.New("server seed does not match its commitment")
	ErrEmptyClientSeed   = errors.New("client seed is empty")
	ErrNegativeNonce     = errors.New("nonce is negative")
)

const serverSeedBytes = 32

// Digest is one HMAC-SHA256 output.
type Digest [sha256.Size]byte

// Hex returns the lowercase hex encoding.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Derive computes the digest for a bet.
func Derive(serverSeed, clientSeed string, nonce int64) Digest {
	return mac(serverSeed, clientSeed+":"+strconv.FormatInt(nonce, 10))
}

// DeriveRound extends the digest stream of a bet. Round 0 equals Derive.
func DeriveRound(serverSeed, clientSeed string, nonce int64, round int) Digest {
	if round == 0 {
		return Derive(serverSeed, clientSeed, nonce)
	}
	return mac(serverSeed, clientSeed+":"+strconv.FormatInt(nonce, 10)+":"+strconv.Itoa(round))
}

// Verify recomputes the digest and compares it with the claimed hex value.
func Verify(serverSeed, clientSeed string, nonce int64, claimedHex string) bool {
	want := Derive(serverSeed, clientSeed, nonce).Hex()
	return hmac.Equal([]byte(want), []byte(strings.ToLower(claimedHex)))
}

// Commit returns the public commitment of a server seed.
func Commit(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment checks a revealed server seed against its commitment.
func VerifyCommitment(serverSeed, commitment string) bool {
	return hmac.Equal([]byte(Commit(serverSeed)), []byte(strings.ToLower(commitment)))
}

// ValidatePair rejects seed material the engine must not be run on.
func ValidatePair(serverSeed, commitment, clientSeed string, nonce int64) error {
	if commitment == "" {
		return ErrMissingCommitment
	}
	if !VerifyCommitment(serverSeed, commitment) {
		return ErrCommitMismatch
	}
	if clientSeed == "" {
		return ErrEmptyClientSeed
	}
	if nonce < 0 {
		return ErrNegativeNonce
	}
	return nil
}

// NewServerSeed returns 32 random bytes, hex encoded.
func NewServerSeed() (string, error) {
	return randomHex(serverSeedBytes)
}

// NewClientSeed returns a default client seed for players that did not pick one.
func NewClientSeed() (string, error) {
	return randomHex(8)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func mac(key, msg string) Digest {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(msg))
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
