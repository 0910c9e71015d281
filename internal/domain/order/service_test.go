package order

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/domain/credit"
	"github.com/bubblebox/bubblebox-api/internal/domain/promo"
	"github.com/bubblebox/bubblebox-api/internal/domain/settings"
)

type repoStub struct {
	created *Order
	items   []Item
	addons  []Addon
	payment *Payment

	statusSet Status
}

func (r *repoStub) Create(_ context.Context, o *Order, items []Item, prefs *Preferences, addons []Addon, payment *Payment) (*Order, error) {
	o.ID = uuid.New()
	o.OrderNo = "BB-2026-A1B2C3"
	o.Status = StatusPending
	r.created = o
	r.items = items
	r.addons = addons
	r.payment = payment
	return o, nil
}

func (r *repoStub) GetByID(context.Context, uuid.UUID) (*Order, error) {
	if r.created == nil {
		return nil, ErrNotFound
	}
	return r.created, nil
}

func (r *repoStub) ListByUserID(context.Context, uuid.UUID, int, int) ([]Order, error) {
	return nil, nil
}

func (r *repoStub) SetStatus(_ context.Context, _ uuid.UUID, to Status, _ string, _ uuid.UUID) (*Order, error) {
	r.statusSet = to
	return &Order{Status: to}, nil
}

func (r *repoStub) Cancel(context.Context, uuid.UUID, uuid.UUID) (*Order, error) {
	return &Order{Status: StatusCancelled}, nil
}

func (r *repoStub) AssignDriver(context.Context, uuid.UUID, uuid.NullUUID, uuid.UUID) (*Order, error) {
	return nil, nil
}

func (r *repoStub) OwnerID(context.Context, uuid.UUID) (uuid.UUID, error) { return uuid.Nil, nil }
func (r *repoStub) CountDelivered(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

type promoStub struct {
	validation *promo.Validation
	usesBumped int
}

func (p *promoStub) Validate(context.Context, string, decimal.Decimal, decimal.Decimal) (*promo.Validation, error) {
	return p.validation, nil
}

func (p *promoStub) IncrementUses(context.Context, uuid.UUID) error {
	p.usesBumped++
	return nil
}

type creditStub struct {
	balance decimal.Decimal
	debited decimal.Decimal
}

func (c *creditStub) GetBalance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return c.balance, nil
}

func (c *creditStub) Debit(_ context.Context, _ uuid.UUID, amount decimal.Decimal, _ credit.SourceType, _ uuid.UUID, _ string) error {
	c.debited = amount
	return nil
}

type referralStub struct{ awarded int }

func (s *referralStub) AwardIfEligible(context.Context, uuid.UUID) error {
	s.awarded++
	return nil
}

type settingsStub struct {
	values map[string]decimal.Decimal
}

func (s *settingsStub) GetDecimal(_ context.Context, key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

type addressStub struct{ saved int }

func (a *addressStub) SaveForUser(context.Context, uuid.UUID, AddressInput) (uuid.UUID, error) {
	a.saved++
	return uuid.New(), nil
}

func newTestService(repo *repoStub, promos *promoStub, credits *creditStub, referrals *referralStub) *Service {
	if promos.validation == nil {
		promos.validation = &promo.Validation{Valid: false, Message: "Invalid promo code"}
	}
	return NewService(repo, promos, credits, referrals, &settingsStub{}, &addressStub{})
}

func baseRequest() *CreateRequest {
	return &CreateRequest{
		ServiceType: "laundry",
		Items: []ItemInput{
			{Type: "laundry", Name: "Regular bag", Quantity: 1, UnitPrice: decimal.NewFromInt(25)},
		},
		PaymentMethod: "cash",
	}
}

func TestCreateComputesPayableWithDefaultFee(t *testing.T) {
	repo := &repoStub{}
	svc := newTestService(repo, &promoStub{}, &creditStub{}, &referralStub{})

	o, err := svc.Create(context.Background(), uuid.New(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !o.DeliveryFee.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected default delivery fee 5, got %s", o.DeliveryFee)
	}
	if !o.Total.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected total 30, got %s", o.Total)
	}
}

func TestCreateWaivesFeeAboveFreeDeliveryThreshold(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo, &promoStub{validation: &promo.Validation{}}, &creditStub{}, &referralStub{},
		&settingsStub{values: map[string]decimal.Decimal{
			settings.KeyFreeDeliveryMinimum: decimal.NewFromInt(20),
		}}, &addressStub{})

	o, err := svc.Create(context.Background(), uuid.New(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !o.DeliveryFee.IsZero() {
		t.Fatalf("expected waived delivery fee, got %s", o.DeliveryFee)
	}
	if !o.Total.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected total 25, got %s", o.Total)
	}
}

func TestCreateAddsSelectedAddonRow(t *testing.T) {
	repo := &repoStub{}
	svc := newTestService(repo, &promoStub{}, &creditStub{}, &referralStub{})

	req := baseRequest()
	req.Addons = []string{"stain_treatment"}

	if _, err := svc.Create(context.Background(), uuid.New(), req); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(repo.addons) != 1 {
		t.Fatalf("expected exactly one addon row, got %d", len(repo.addons))
	}
	if repo.addons[0].AddonType != AddonStainTreatment || !repo.addons[0].Price.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected addon row: %+v", repo.addons[0])
	}
	// addon price lands in the subtotal: 25 + 3 + fee 5
	if !repo.created.Total.Equal(decimal.NewFromInt(33)) {
		t.Fatalf("expected total 33, got %s", repo.created.Total)
	}
}

func TestCreateRejectsUnknownAddon(t *testing.T) {
	svc := newTestService(&repoStub{}, &promoStub{}, &creditStub{}, &referralStub{})

	req := baseRequest()
	req.Addons = []string{"ironing"}

	if _, err := svc.Create(context.Background(), uuid.New(), req); err != ErrInvalidAddon {
		t.Fatalf("expected ErrInvalidAddon, got %v", err)
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := newTestService(&repoStub{}, &promoStub{}, &creditStub{}, &referralStub{})

	req := baseRequest()
	req.Items = nil

	if _, err := svc.Create(context.Background(), uuid.New(), req); err != ErrNoItems {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestCreateSurfacesPromoRejection(t *testing.T) {
	svc := newTestService(&repoStub{}, &promoStub{
		validation: &promo.Validation{Valid: false, Message: "This promo code has expired"},
	}, &creditStub{}, &referralStub{})

	req := baseRequest()
	req.PromoCode = "OLD10"

	_, err := svc.Create(context.Background(), uuid.New(), req)
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if !strings.Contains(rejected.Reason, "expired") {
		t.Fatalf("unexpected reason: %q", rejected.Reason)
	}
}

func TestCreateAppliesPromoAndBumpsUses(t *testing.T) {
	repo := &repoStub{}
	promoID := uuid.New()
	promos := &promoStub{validation: &promo.Validation{
		Valid:          true,
		Promo:          &promo.Code{ID: promoID, DiscountType: promo.DiscountTypePercentage},
		DiscountAmount: decimal.NewFromInt(3),
		Message:        "10% discount applied!",
	}}
	svc := newTestService(repo, promos, &creditStub{}, &referralStub{})

	req := baseRequest()
	req.PromoCode = "WELCOME10"

	o, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if o.PromoCodeID == nil || *o.PromoCodeID != promoID {
		t.Fatal("expected promo code reference on the order")
	}
	if !o.Total.Equal(decimal.NewFromInt(27)) {
		t.Fatalf("expected total 27 after discount, got %s", o.Total)
	}
	if promos.usesBumped != 1 {
		t.Fatalf("expected uses_count bumped once, got %d", promos.usesBumped)
	}
}

func TestCreateDebitsAppliedCredit(t *testing.T) {
	repo := &repoStub{}
	credits := &creditStub{balance: decimal.NewFromInt(8)}
	svc := newTestService(repo, &promoStub{}, credits, &referralStub{})

	req := baseRequest()
	req.ApplyCredit = true
	req.CreditAmount = decimal.NewFromInt(20)

	o, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !o.CreditApplied.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected applied credit 8, got %s", o.CreditApplied)
	}
	if !o.Total.Equal(decimal.NewFromInt(22)) {
		t.Fatalf("expected payable 22, got %s", o.Total)
	}
	if !credits.debited.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected debit of 8, got %s", credits.debited)
	}
}

func TestCreatePaymentStatusByMethod(t *testing.T) {
	repo := &repoStub{}
	svc := newTestService(repo, &promoStub{}, &creditStub{}, &referralStub{})

	if _, err := svc.Create(context.Background(), uuid.New(), baseRequest()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.payment.Status != PaymentStatusPending {
		t.Fatalf("cash payment should be pending, got %s", repo.payment.Status)
	}

	req := baseRequest()
	req.PaymentMethod = "card"
	if _, err := svc.Create(context.Background(), uuid.New(), req); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.payment.Status != PaymentStatusAuthorized {
		t.Fatalf("card payment should be authorized, got %s", repo.payment.Status)
	}
}

func TestSetStatusDeliveredTriggersReferralAward(t *testing.T) {
	referrals := &referralStub{}
	svc := newTestService(&repoStub{}, &promoStub{}, &creditStub{}, referrals)

	if _, err := svc.SetStatus(context.Background(), uuid.New(), StatusDelivered, "", uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if referrals.awarded != 1 {
		t.Fatalf("expected one award attempt, got %d", referrals.awarded)
	}
}

func TestSetStatusNonDeliveredSkipsAward(t *testing.T) {
	referrals := &referralStub{}
	svc := newTestService(&repoStub{}, &promoStub{}, &creditStub{}, referrals)

	if _, err := svc.SetStatus(context.Background(), uuid.New(), StatusConfirmed, "", uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if referrals.awarded != 0 {
		t.Fatalf("expected no award attempt, got %d", referrals.awarded)
	}
}

func TestGetBlocksOtherCustomers(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{created: &Order{ID: uuid.New(), UserID: owner}}
	svc := newTestService(repo, &promoStub{}, &creditStub{}, &referralStub{})

	if _, err := svc.Get(context.Background(), uuid.New(), uuid.New(), "customer"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), uuid.New(), uuid.New(), "admin"); err != nil {
		t.Fatalf("admin read should pass, got %v", err)
	}
}
