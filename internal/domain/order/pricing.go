package order

import (
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/domain/promo"
)

// Fixed addon prices, captured onto the order row at creation time so
// later price changes never rewrite history.
var addonPrices = map[AddonType]decimal.Decimal{
	AddonStainTreatment: decimal.NewFromInt(3),
	AddonWhitening:      decimal.NewFromInt(4),
	AddonScentBoosters:  decimal.NewFromInt(3),
	AddonRepairs:        decimal.NewFromInt(5),
}

// AddonPrice returns the fixed price for an addon type.
func AddonPrice(t AddonType) (decimal.Decimal, error) {
	p, ok := addonPrices[t]
	if !ok {
		return decimal.Zero, ErrInvalidAddon
	}
	return p, nil
}

// Totals is the full cost breakdown for an order.
type Totals struct {
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	Discount          decimal.Decimal `json:"discount"`
	TotalBeforeCredit decimal.Decimal `json:"total_before_credit"`
	MaxCredit         decimal.Decimal `json:"max_credit"`
	AppliedCredit     decimal.Decimal `json:"applied_credit"`
	Payable           decimal.Decimal `json:"payable"`
}

// ComputeTotals reconciles the subtotal with delivery fee, promo
// discount and requested credit. Credit can zero out the order but
// never drives the payable negative.
func ComputeTotals(
	subtotal, deliveryFee, promoDiscount decimal.Decimal,
	promoType promo.DiscountType,
	applyCredit bool,
	creditRequested, creditBalance decimal.Decimal,
) Totals {
	fee := deliveryFee
	if promoType == promo.DiscountTypeFreeDelivery {
		fee = decimal.Zero
	}

	totalBeforeCredit := subtotal.Add(fee).Sub(promoDiscount)
	if totalBeforeCredit.IsNegative() {
		totalBeforeCredit = decimal.Zero
	}

	maxCredit := decimal.Min(creditBalance, totalBeforeCredit)
	if maxCredit.IsNegative() {
		maxCredit = decimal.Zero
	}

	applied := decimal.Zero
	if applyCredit {
		applied = decimal.Min(creditRequested, maxCredit)
		if applied.IsNegative() {
			applied = decimal.Zero
		}
	}

	payable := totalBeforeCredit.Sub(applied)
	if payable.IsNegative() {
		payable = decimal.Zero
	}

	return Totals{
		DeliveryFee:       fee,
		Discount:          promoDiscount,
		TotalBeforeCredit: totalBeforeCredit,
		MaxCredit:         maxCredit,
		AppliedCredit:     applied,
		Payable:           payable,
	}
}

// Subtotal sums quantity times unit price across the order's items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}
