package credit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType defines supported credit ledger entry types.
type EntryType string

const (
	EntryTypeReferralBonus EntryType = "referral_bonus"
	EntryTypeRefereeBonus  EntryType = "referee_bonus"
	EntryTypeUsed          EntryType = "used"
	EntryTypeRefund        EntryType = "refund"
	EntryTypeAdminGrant    EntryType = "admin_grant"
)

// SourceType tags what an entry was issued or spent against.
type SourceType string

const (
	SourceTypeOrder    SourceType = "order"
	SourceTypeReferral SourceType = "referral"
)

// Entry is an append-only ledger row. Amounts are signed: positive for
// grants, negative for debits. Legacy rows of type "used" stored the
// debit as a positive magnitude; Delta normalizes that encoding.
type Entry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      uuid.UUID       `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Type        EntryType       `db:"type" json:"type"`
	SourceType  *SourceType     `db:"source_type" json:"source_type,omitempty"`
	SourceID    *uuid.UUID      `db:"source_id" json:"source_id,omitempty"`
	Description string          `db:"description" json:"description"`
	ExpiresAt   *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Delta returns the entry's effective contribution to the balance.
func (e Entry) Delta() decimal.Decimal {
	if e.Type == EntryTypeUsed && e.Amount.IsPositive() {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Expired reports whether the entry no longer counts toward the balance.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
