package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TxCredit          TransactionType = "CREDIT"
	TxDebit           TransactionType = "DEBIT"
	TxBet             TransactionType = "BET"
	TxWin             TransactionType = "WIN"
	TxRefund          TransactionType = "REFUND"
	TxLock            TransactionType = "LOCK"
	TxUnlock          TransactionType = "UNLOCK"
	TxRelease         TransactionType = "RELEASE"
	TxTransferOut     TransactionType = "TRANSFER_OUT"
	TxTransferIn      TransactionType = "TRANSFER_IN"
	TxBonusGrant      TransactionType = "BONUS_GRANT"
	TxBonusForfeit    TransactionType = "BONUS_FORFEIT"
	TxBonusConversion TransactionType = "BONUS_CONVERSION"
)

// Transaction is an append-only ledger entry. Amount is signed and applies to
// Bucket; when Counter is set the same amount is taken from Counter, which is
// how a single entry moves funds between two buckets of one wallet.
// BalanceBefore and BalanceAfter describe Bucket.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	Seq           int64           `json:"seq"`
	UserID        int64           `json:"user_id"`
	Type          TransactionType `json:"type"`
	Bucket        Bucket          `json:"bucket"`
	Counter       Bucket          `json:"counter,omitempty"`
	Amount        int64           `json:"amount"`
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	Ref           Reference       `json:"ref"`
	Reason        string          `json:"reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IsCredit returns true if the entry grows its bucket.
func (t *Transaction) IsCredit() bool {
	return t.Amount > 0
}

// LedgerEffect is what every balance-changing call returns: the entries it
// appended and the wallet as it stood after them.
type LedgerEffect struct {
	UserID  int64         `json:"user_id"`
	Entries []Transaction `json:"entries"`
	Wallet  Wallet        `json:"wallet"`
}

// Moved reports whether any money changed buckets.
func (e LedgerEffect) Moved() bool {
	return len(e.Entries) > 0
}

// Net is the signed change the effect made to one bucket.
func (e LedgerEffect) Net(b Bucket) int64 {
	var n int64
	for _, t := range e.Entries {
		if t.Bucket == b {
			n += t.Amount
		}
		if t.Counter == b {
			n -= t.Amount
		}
	}
	return n
}

// Merge folds a later effect on the same wallet into e.
func (e *LedgerEffect) Merge(other LedgerEffect) {
	if e.UserID == 0 {
		e.UserID = other.UserID
	}
	e.Entries = append(e.Entries, other.Entries...)
	e.Wallet = other.Wallet
}
