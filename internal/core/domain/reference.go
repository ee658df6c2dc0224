package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ReferenceKind tags the entity a ledger entry originates from.
type ReferenceKind string

const (
	RefBet        ReferenceKind = "bet"
	RefDeposit    ReferenceKind = "deposit"
	RefWithdrawal ReferenceKind = "withdrawal"
	RefBonus      ReferenceKind = "bonus"
	RefSettlement ReferenceKind = "external_settlement"
	RefTransfer   ReferenceKind = "transfer"
)

// Reference points a transaction at its origin. Build it with the typed
// constructors and read it back with the typed accessors.
type Reference struct {
	Kind ReferenceKind `json:"kind"`
	ID   string        `json:"id"`
}

func BetRef(id uuid.UUID) Reference        { return Reference{Kind: RefBet, ID: id.String()} }
func BonusRef(id uuid.UUID) Reference      { return Reference{Kind: RefBonus, ID: id.String()} }
func TransferRef(id uuid.UUID) Reference   { return Reference{Kind: RefTransfer, ID: id.String()} }
func DepositRef(extID string) Reference    { return Reference{Kind: RefDeposit, ID: extID} }
func WithdrawalRef(extID string) Reference { return Reference{Kind: RefWithdrawal, ID: extID} }

// SettlementRef identifies an external settlement by provider and serial number.
func SettlementRef(provider, serial string) Reference {
	return Reference{Kind: RefSettlement, ID: SettlementKey(provider, serial)}
}

// BetID returns the bet id when the reference is a bet.
func (r Reference) BetID() (uuid.UUID, bool) {
	return r.uuidOf(RefBet)
}

// BonusID returns the grant id when the reference is a bonus.
func (r Reference) BonusID() (uuid.UUID, bool) {
	return r.uuidOf(RefBonus)
}

// TransferID returns the transfer id when the reference is a transfer.
func (r Reference) TransferID() (uuid.UUID, bool) {
	return r.uuidOf(RefTransfer)
}

// Settlement returns provider and serial number for external settlements.
func (r Reference) Settlement() (provider, serial string, ok bool) {
	if r.Kind != RefSettlement {
		return "", "", false
	}
	provider, serial, ok = strings.Cut(r.ID, ":")
	return provider, serial, ok
}

func (r Reference) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

func (r Reference) String() string {
	return string(r.Kind) + "/" + r.ID
}

// ParseReference reverses String.
func ParseReference(s string) (Reference, error) {
	kind, id, ok := strings.Cut(s, "/")
	if !ok || id == "" {
		return Reference{}, fmt.Errorf("malformed reference %q", s)
	}
	ref := Reference{Kind: ReferenceKind(kind), ID: id}
	switch ref.Kind {
	case RefBet, RefBonus, RefTransfer:
		if _, err := uuid.Parse(id); err != nil {
			return Reference{}, fmt.Errorf("reference %q: %w", s, err)
		}
	case RefDeposit, RefWithdrawal, RefSettlement:
	default:
		return Reference{}, fmt.Errorf("unknown reference kind %q", kind)
	}
	return ref, nil
}

func (r Reference) uuidOf(kind ReferenceKind) (uuid.UUID, bool) {
	if r.Kind != kind {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
