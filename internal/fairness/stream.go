package fairness

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const wordsPerDigest = sha256.Size / 4

var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrInvalidWeights = errors.New("weights must be non-negative with a positive sum")
)

// Stream reads uniform 32-bit words from the digest of a bet, moving on to
// the next round digest once the current one is used up.
type Stream struct {
	serverSeed string
	clientSeed string
	nonce      int64
	round      int
	digest     Digest
	pos        int
}

// NewStream opens the stream of a bet at round 0.
func NewStream(serverSeed, clientSeed string, nonce int64) *Stream {
	return &Stream{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
		digest:     Derive(serverSeed, clientSeed, nonce),
	}
}

// Digest is the round-0 digest that identifies the bet.
func (s *Stream) Digest() Digest {
	return Derive(s.serverSeed, s.clientSeed, s.nonce)
}

// Uint32 returns the next big-endian word.
func (s *Stream) Uint32() uint32 {
	if s.pos == wordsPerDigest {
		s.round++
		s.digest = DeriveRound(s.serverSeed, s.clientSeed, s.nonce, s.round)
		s.pos = 0
	}
	w := binary.BigEndian.Uint32(s.digest[s.pos*4:])
	s.pos++
	return w
}

// Float returns a uniform fraction in [0, 1).
func (s *Stream) Float() float64 {
	return float64(s.Uint32()) / (1 << 32)
}

// Range returns an integer in [lo, hi].
func (s *Stream) Range(lo, hi int) (int, error) {
	if hi < lo {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, lo, hi)
	}
	span := float64(hi - lo + 1)
	return lo + int(s.Float()*span), nil
}

// DiceRoll returns a roll between 0.00 and 100.00 in steps of 0.01.
func (s *Stream) DiceRoll() float64 {
	return math.Floor(s.Float()*10001) / 100
}

// Distinct draws k different values from [0, n), rejecting repeats.
func (s *Stream) Distinct(k, n int) ([]int, error) {
	if k < 0 || n <= 0 || k > n {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidRange, k, n)
	}
	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for len(out) < k {
		v := int(s.Float() * float64(n))
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Weighted picks an index with probability proportional to its weight.
func (s *Stream) Weighted(weights []float64) (int, error) {
	var total float64
	last := -1
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, ErrInvalidWeights
		}
		if w > 0 {
			last = i
		}
		total += w
	}
	if last < 0 {
		return 0, ErrInvalidWeights
	}

	r := s.Float() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if w > 0 && r < cum {
			return i, nil
		}
	}
	// float rounding can leave r at the very top of the distribution
	return last, nil
}

// CrashPoint samples a long-tailed multiplier, (1-edge)/(1-f), floored to
// two decimals and clamped to [lo, hi].
func (s *Stream) CrashPoint(houseEdge, lo, hi float64) float64 {
	return CrashPointOf(s.Float(), houseEdge, lo, hi)
}

// CrashPointOf maps a uniform fraction to a crash multiplier.
func CrashPointOf(f, houseEdge, lo, hi float64) float64 {
	p := math.Floor((1-houseEdge)/(1-f)*100) / 100
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
