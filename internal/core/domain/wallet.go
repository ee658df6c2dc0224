package domain

import "time"

// Bucket names one of the three balances a wallet holds.
type Bucket string

const (
	BucketReal   Bucket = "real"
	BucketBonus  Bucket = "bonus"
	BucketLocked Bucket = "locked"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	return b == BucketReal || b == BucketBonus || b == BucketLocked
}

// Wallet holds a user's balances in minor units. Every bucket stays >= 0.
type Wallet struct {
	UserID         int64     `json:"user_id"`
	Currency       string    `json:"currency"`
	Real           int64     `json:"real"`
	Bonus          int64     `json:"bonus"`
	Locked         int64     `json:"locked"`
	TotalDeposited int64     `json:"total_deposited"`
	TotalWithdrawn int64     `json:"total_withdrawn"`
	TotalWagered   int64     `json:"total_wagered"`
	TotalWon       int64     `json:"total_won"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Get returns the balance of a bucket.
func (w *Wallet) Get(b Bucket) int64 {
	switch b {
	case BucketReal:
		return w.Real
	case BucketBonus:
		return w.Bonus
	case BucketLocked:
		return w.Locked
	}
	return 0
}

// Adjust applies a signed delta to a bucket. It refuses, leaving the wallet
// untouched, when the result would be negative.
func (w *Wallet) Adjust(b Bucket, delta int64) (before, after int64, ok bool) {
	before = w.Get(b)
	after = before + delta
	if after < 0 || !b.Valid() {
		return before, before, false
	}
	switch b {
	case BucketReal:
		w.Real = after
	case BucketBonus:
		w.Bonus = after
	case BucketLocked:
		w.Locked = after
	}
	return before, after, true
}

// Playable is the amount a bet can draw on.
func (w *Wallet) Playable() int64 {
	return w.Real + w.Bonus
}

// Balances snapshots the three buckets.
func (w *Wallet) Balances() Balances {
	return Balances{Real: w.Real, Bonus: w.Bonus, Locked: w.Locked}
}

// Balances is the bucket triple reconstructed by ledger replay.
type Balances struct {
	Real   int64 `json:"real"`
	Bonus  int64 `json:"bonus"`
	Locked int64 `json:"locked"`
}

// Apply replays one transaction: the bucket receives the amount and the
// counter bucket, when set, gives it up.
func (b *Balances) Apply(t Transaction) {
	b.add(t.Bucket, t.Amount)
	if t.Counter != "" {
		b.add(t.Counter, -t.Amount)
	}
}

// Negative reports whether any bucket went below zero.
func (b Balances) Negative() bool {
	return b.Real < 0 || b.Bonus < 0 || b.Locked < 0
}

func (b *Balances) add(bucket Bucket, delta int64) {
	switch bucket {
	case BucketReal:
		b.Real += delta
	case BucketBonus:
		b.Bonus += delta
	case BucketLocked:
		b.Locked += delta
	}
}

// BetSplit records which buckets funded a wager.
type BetSplit struct {
	Real  int64 `json:"real"`
	Bonus int64 `json:"bonus"`
}

// Total is the full stake.
func (s BetSplit) Total() int64 {
	return s.Real + s.Bonus
}
