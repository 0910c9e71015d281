package promo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type repoStub struct {
	code       *Code
	usesBumped int
}

func (r *repoStub) GetByCode(context.Context, string) (*Code, error) {
	if r.code == nil {
		return nil, ErrCodeNotFound
	}
	return r.code, nil
}

func (r *repoStub) IncrementUses(context.Context, uuid.UUID) error {
	r.usesBumped++
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activeCode(discountType DiscountType, value string) *Code {
	return &Code{
		ID:            uuid.New(),
		Code:          "WELCOME10",
		DiscountType:  discountType,
		DiscountValue: d(value),
		IsActive:      true,
	}
}

func TestValidateBlankCode(t *testing.T) {
	svc := NewService(&repoStub{})

	v, err := svc.Validate(context.Background(), "   ", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid || v.Message != "Please enter a promo code" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	svc := NewService(&repoStub{})

	v, err := svc.Validate(context.Background(), "NOPE", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid || v.Message != "Invalid promo code" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestValidateInactiveAlwaysRejected(t *testing.T) {
	// inactive wins even when every other field is fine
	c := activeCode(DiscountTypePercentage, "10")
	c.IsActive = false
	svc := NewService(&repoStub{code: c})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid || v.Message != "This promo code is no longer active" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestValidateExpired(t *testing.T) {
	c := activeCode(DiscountTypePercentage, "10")
	yesterday := time.Now().Add(-24 * time.Hour)
	c.ExpiresAt = &yesterday
	svc := NewService(&repoStub{code: c})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid || v.Message != "This promo code has expired" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestValidateMaxUsesReached(t *testing.T) {
	c := activeCode(DiscountTypePercentage, "10")
	maxUses := 100
	c.MaxUses = &maxUses
	c.UsesCount = 100
	svc := NewService(&repoStub{code: c})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid || v.Message != "This promo code has reached its maximum uses" {
		t.Fatalf("unexpected result: %+v", v)
	}
}

func TestValidateMinOrderNotMet(t *testing.T) {
	c := activeCode(DiscountTypeFixed, "5")
	minOrder := d("20")
	c.MinOrderAmount = &minOrder
	svc := NewService(&repoStub{code: c})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("15"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid {
		t.Fatal("expected rejection below the minimum order")
	}
	if !strings.Contains(v.Message, "$20.00") {
		t.Fatalf("message should name the minimum, got %q", v.Message)
	}
}

func TestValidatePercentageDiscount(t *testing.T) {
	svc := NewService(&repoStub{code: activeCode(DiscountTypePercentage, "10")})

	v, err := svc.Validate(context.Background(), "welcome10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.Valid {
		t.Fatalf("expected valid, got %q", v.Message)
	}
	if !v.DiscountAmount.Equal(d("5.00")) {
		t.Fatalf("expected discount 5.00, got %s", v.DiscountAmount)
	}
	if v.Message != "10% discount applied!" {
		t.Fatalf("unexpected message: %q", v.Message)
	}
}

func TestValidateFixedDiscount(t *testing.T) {
	svc := NewService(&repoStub{code: activeCode(DiscountTypeFixed, "7.50")})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.DiscountAmount.Equal(d("7.50")) {
		t.Fatalf("expected discount 7.50, got %s", v.DiscountAmount)
	}
	if v.Message != "$7.50 discount applied!" {
		t.Fatalf("unexpected message: %q", v.Message)
	}
}

func TestValidateFreeDelivery(t *testing.T) {
	svc := NewService(&repoStub{code: activeCode(DiscountTypeFreeDelivery, "0")})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.DiscountAmount.Equal(d("5")) {
		t.Fatalf("expected discount equal to the fee, got %s", v.DiscountAmount)
	}
	if v.Message != "Free delivery applied!" {
		t.Fatalf("unexpected message: %q", v.Message)
	}
}

func TestValidateDiscountClampedToTotal(t *testing.T) {
	svc := NewService(&repoStub{code: activeCode(DiscountTypeFixed, "100")})

	v, err := svc.Validate(context.Background(), "WELCOME10", d("30"), d("5"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.DiscountAmount.Equal(d("30")) {
		t.Fatalf("discount must not exceed the order total, got %s", v.DiscountAmount)
	}
}

func TestValidateDoesNotBumpUses(t *testing.T) {
	repo := &repoStub{code: activeCode(DiscountTypePercentage, "10")}
	svc := NewService(repo)

	if _, err := svc.Validate(context.Background(), "WELCOME10", d("50"), d("5")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.usesBumped != 0 {
		t.Fatal("validation must never count a use")
	}
}
