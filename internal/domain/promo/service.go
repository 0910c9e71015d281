package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Service evaluates promo codes against an order. Validation is
// read-only and side-effect free; the use counter is only bumped after
// the order actually commits, so abandoned checkouts are never counted.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Validate evaluates the code against an order total. Rules run in
// order and the first failure wins. The lookup-failure message is the
// same generic one for unknown and malformed codes so the endpoint
// does not leak which codes exist.
func (s *Service) Validate(ctx context.Context, code string, orderTotal, deliveryFee decimal.Decimal) (*Validation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return reject("Please enter a promo code"), nil
	}

	c, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return reject("Invalid promo code"), nil
		}
		return nil, err
	}

	if !c.IsActive {
		return reject("This promo code is no longer active"), nil
	}

	if c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now()) {
		return reject("This promo code has expired"), nil
	}

	if c.MaxUses != nil && c.UsesCount >= *c.MaxUses {
		return reject("This promo code has reached its maximum uses"), nil
	}

	if c.MinOrderAmount != nil && orderTotal.LessThan(*c.MinOrderAmount) {
		return reject(fmt.Sprintf("A minimum order of $%s is required for this code", c.MinOrderAmount.StringFixed(2))), nil
	}

	discount, message, ok := discountFor(c, orderTotal, deliveryFee)
	if !ok {
		return reject("Invalid promo code"), nil
	}

	return &Validation{
		Valid:          true,
		Promo:          c,
		Message:        message,
		DiscountAmount: discount,
	}, nil
}

// IncrementUses records one successful use of the code
func (s *Service) IncrementUses(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementUses(ctx, id)
}

// discountFor computes the discount amount for a valid code. The
// result is clamped to the order total so a discount can never exceed
// the amount being discounted.
func discountFor(c *Code, orderTotal, deliveryFee decimal.Decimal) (decimal.Decimal, string, bool) {
	var discount decimal.Decimal
	var message string

	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = orderTotal.Mul(c.DiscountValue).Div(hundred)
		message = fmt.Sprintf("%s%% discount applied!", c.DiscountValue.String())
	case DiscountTypeFixed:
		discount = c.DiscountValue
		message = fmt.Sprintf("$%s discount applied!", c.DiscountValue.StringFixed(2))
	case DiscountTypeFreeDelivery:
		discount = deliveryFee
		message = "Free delivery applied!"
	default:
		return decimal.Zero, "", false
	}

	if discount.GreaterThan(orderTotal) {
		discount = orderTotal
	}

	return discount.Round(2), message, true
}

func reject(message string) *Validation {
	return &Validation{Valid: false, Message: message, DiscountAmount: decimal.Zero}
}
