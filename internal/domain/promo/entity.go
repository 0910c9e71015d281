package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType defines how a promo code discounts an order.
type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixed        DiscountType = "fixed"
	DiscountTypeFreeDelivery DiscountType = "free_delivery"
)

// Code is a promo code row. Codes are created by admin tooling; this
// service only validates them and counts successful uses.
type Code struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	Code           string           `db:"code" json:"code"`
	DiscountType   DiscountType     `db:"discount_type" json:"discount_type"`
	DiscountValue  decimal.Decimal  `db:"discount_value" json:"discount_value"`
	MinOrderAmount *decimal.Decimal `db:"min_order_amount" json:"min_order_amount,omitempty"`
	MaxUses        *int             `db:"max_uses" json:"max_uses,omitempty"`
	UsesCount      int              `db:"uses_count" json:"uses_count"`
	ExpiresAt      *time.Time       `db:"expires_at" json:"expires_at,omitempty"`
	IsActive       bool             `db:"is_active" json:"is_active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// Validation is the result of evaluating a code against an order.
// Rejections carry a user-facing message; they are results, not errors.
type Validation struct {
	Valid          bool            `json:"valid"`
	Promo          *Code           `json:"promo,omitempty"`
	Message        string          `json:"message"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}
