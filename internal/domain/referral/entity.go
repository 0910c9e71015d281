package referral

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents a referral record's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Code is a per-user shareable referral code, generated lazily on
// first access.
type Code struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	UserID       uuid.UUID        `db:"user_id" json:"user_id"`
	Code         string           `db:"code" json:"code"`
	IsActive     bool             `db:"is_active" json:"is_active"`
	MaxUses      *int             `db:"max_uses" json:"max_uses,omitempty"`
	UsesCount    int              `db:"uses_count" json:"uses_count"`
	RewardAmount *decimal.Decimal `db:"reward_amount" json:"reward_amount,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Referral links a referrer to a referee. The referee side is credited
// at signup; the referrer side on the referee's first delivered order.
// At most one referral exists per referee.
type Referral struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	ReferrerID           uuid.UUID       `db:"referrer_id" json:"referrer_id"`
	RefereeID            uuid.UUID       `db:"referee_id" json:"referee_id"`
	CodeUsed             string          `db:"code_used" json:"code_used"`
	Status               Status          `db:"status" json:"status"`
	ReferrerCredited     bool            `db:"referrer_credited" json:"referrer_credited"`
	RefereeCredited      bool            `db:"referee_credited" json:"referee_credited"`
	ReferrerCreditAmount decimal.Decimal `db:"referrer_credit_amount" json:"referrer_credit_amount"`
	RefereeCreditAmount  decimal.Decimal `db:"referee_credit_amount" json:"referee_credit_amount"`
	CompletedAt          *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// Validation is the result of checking a code before signup.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ApplyResult is the outcome of applying a code for a new user.
type ApplyResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}
