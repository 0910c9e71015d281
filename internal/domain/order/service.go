package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/domain/credit"
	"github.com/bubblebox/bubblebox-api/internal/domain/promo"
	"github.com/bubblebox/bubblebox-api/internal/domain/settings"
)

const defaultDeliveryFee = "5"

// RejectedError is a business-rule rejection: the request was well
// formed but not allowed. Handlers surface the reason to the user.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

// PromoValidator is the slice of the promo service order placement
// needs.
type PromoValidator interface {
	Validate(ctx context.Context, code string, orderTotal, deliveryFee decimal.Decimal) (*promo.Validation, error)
	IncrementUses(ctx context.Context, id uuid.UUID) error
}

// CreditLedger is the slice of the credit service order placement
// needs.
type CreditLedger interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType credit.SourceType, sourceID uuid.UUID, description string) error
}

// ReferralAwarder triggers referrer-side crediting on delivery.
type ReferralAwarder interface {
	AwardIfEligible(ctx context.Context, orderID uuid.UUID) error
}

// SettingsProvider supplies the dynamic delivery fee.
type SettingsProvider interface {
	GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal
}

// AddressSaver persists a newly entered address after order creation.
type AddressSaver interface {
	SaveForUser(ctx context.Context, userID uuid.UUID, a AddressInput) (uuid.UUID, error)
}

// ItemInput is one requested line item.
type ItemInput struct {
	Type      string          `json:"type" validate:"required,service_type"`
	Name      string          `json:"name" validate:"required,max=120"`
	Quantity  int             `json:"quantity" validate:"required,min=1,max=100"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

// PreferencesInput carries the wash/fold/delivery options.
type PreferencesInput struct {
	DetergentType    string `json:"detergent_type" validate:"omitempty,max=50"`
	WaterTemperature string `json:"water_temperature" validate:"omitempty,max=50"`
	FoldingStyle     string `json:"folding_style" validate:"omitempty,max=50"`
	FabricSoftener   bool   `json:"fabric_softener"`
	LeaveAtDoor      bool   `json:"leave_at_door"`
	DeliveryNotes    string `json:"delivery_notes" validate:"omitempty,max=500"`
}

// AddressInput is a new address entered during checkout.
type AddressInput struct {
	Label      string `json:"label" validate:"omitempty,max=50"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
}

// CreateRequest is the full order placement payload.
type CreateRequest struct {
	ServiceType         string           `json:"service_type" validate:"required,service_type"`
	Items               []ItemInput      `json:"items" validate:"required,min=1,dive"`
	Preferences         PreferencesInput `json:"preferences"`
	Addons              []string         `json:"addons" validate:"omitempty,dive,addon_type"`
	AddressID           *uuid.UUID       `json:"address_id"`
	NewAddress          *AddressInput    `json:"new_address"`
	PickupDate          *time.Time       `json:"pickup_date"`
	PickupTimeSlot      string           `json:"pickup_time_slot" validate:"omitempty,max=50"`
	PaymentMethod       string           `json:"payment_method" validate:"required,payment_method"`
	PromoCode           string           `json:"promo_code" validate:"omitempty,max=32"`
	ApplyCredit         bool             `json:"apply_credit"`
	CreditAmount        decimal.Decimal  `json:"credit_amount"`
	SpecialInstructions string           `json:"special_instructions" validate:"omitempty,max=1000"`
}

// Service coordinates order accounting and the lifecycle state machine.
type Service struct {
	repo      Repository
	promos    PromoValidator
	credits   CreditLedger
	referrals ReferralAwarder
	settings  SettingsProvider
	addresses AddressSaver
}

func NewService(repo Repository, promos PromoValidator, credits CreditLedger, referrals ReferralAwarder, settings SettingsProvider, addresses AddressSaver) *Service {
	return &Service{
		repo:      repo,
		promos:    promos,
		credits:   credits,
		referrals: referrals,
		settings:  settings,
		addresses: addresses,
	}
}

// Create prices and persists a new order. The order and all its child
// rows commit atomically; the follow-up effects (credit debit, promo
// use count, new address) are separate commits and only logged on
// failure.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Order, error) {
	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	addons, err := buildAddons(req.Addons)
	if err != nil {
		return nil, err
	}

	serviceType := ServiceType(req.ServiceType)
	if !serviceType.Valid() {
		return nil, ErrInvalidService
	}

	subtotal := Subtotal(items)
	for _, a := range addons {
		subtotal = subtotal.Add(a.Price)
	}
	deliveryFee := s.settings.GetDecimal(ctx, settings.KeyDeliveryFee, decimal.RequireFromString(defaultDeliveryFee))

	// Orders above the free-delivery threshold ship free. A zero
	// threshold leaves the feature off.
	freeDeliveryMin := s.settings.GetDecimal(ctx, settings.KeyFreeDeliveryMinimum, decimal.Zero)
	if freeDeliveryMin.IsPositive() && subtotal.GreaterThanOrEqual(freeDeliveryMin) {
		deliveryFee = decimal.Zero
	}

	var (
		promoID   *uuid.UUID
		promoType promo.DiscountType
		discount  = decimal.Zero
	)
	if req.PromoCode != "" {
		v, err := s.promos.Validate(ctx, req.PromoCode, subtotal.Add(deliveryFee), deliveryFee)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, &RejectedError{Reason: v.Message}
		}
		promoID = &v.Promo.ID
		promoType = v.Promo.DiscountType
		discount = v.DiscountAmount
	}

	balance := decimal.Zero
	if req.ApplyCredit {
		balance, err = s.credits.GetBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	totals := ComputeTotals(subtotal, deliveryFee, discount, promoType, req.ApplyCredit, req.CreditAmount, balance)

	paymentMethod := PaymentMethod(req.PaymentMethod)
	paymentStatus := PaymentStatusAuthorized
	if paymentMethod == PaymentCash {
		paymentStatus = PaymentStatusPending
	}

	o := &Order{
		UserID:              userID,
		ServiceType:         serviceType,
		AddressID:           req.AddressID,
		PickupDate:          req.PickupDate,
		PickupTimeSlot:      req.PickupTimeSlot,
		Subtotal:            subtotal,
		DeliveryFee:         totals.DeliveryFee,
		Discount:            totals.Discount,
		CreditApplied:       totals.AppliedCredit,
		Total:               totals.Payable,
		PromoCodeID:         promoID,
		PaymentMethod:       paymentMethod,
		SpecialInstructions: req.SpecialInstructions,
	}

	prefs := &Preferences{
		DetergentType:    req.Preferences.DetergentType,
		WaterTemperature: req.Preferences.WaterTemperature,
		FoldingStyle:     req.Preferences.FoldingStyle,
		FabricSoftener:   req.Preferences.FabricSoftener,
		LeaveAtDoor:      req.Preferences.LeaveAtDoor,
		DeliveryNotes:    req.Preferences.DeliveryNotes,
	}

	payment := &Payment{
		Amount: totals.Payable,
		Method: paymentMethod,
		Status: paymentStatus,
	}

	created, err := s.repo.Create(ctx, o, items, prefs, addons, payment)
	if err != nil {
		return nil, err
	}

	s.runPostCreation(ctx, userID, created, totals, req.NewAddress)

	return created, nil
}

// runPostCreation performs the follow-up writes that live outside the
// order transaction. Failures here must not undo a placed order, so
// they are logged and swallowed.
func (s *Service) runPostCreation(ctx context.Context, userID uuid.UUID, o *Order, totals Totals, newAddress *AddressInput) {
	if totals.AppliedCredit.IsPositive() {
		desc := fmt.Sprintf("Applied to order %s", o.OrderNo)
		if err := s.credits.Debit(ctx, userID, totals.AppliedCredit, credit.SourceTypeOrder, o.ID, desc); err != nil {
			log.Error().Err(err).
				Str("order_id", o.ID.String()).
				Str("amount", totals.AppliedCredit.StringFixed(2)).
				Msg("credit debit after order creation failed")
		}
	}

	if o.PromoCodeID != nil {
		if err := s.promos.IncrementUses(ctx, *o.PromoCodeID); err != nil {
			log.Error().Err(err).
				Str("order_id", o.ID.String()).
				Str("promo_code_id", o.PromoCodeID.String()).
				Msg("promo use count increment failed")
		}
	}

	if newAddress != nil {
		if _, err := s.addresses.SaveForUser(ctx, userID, *newAddress); err != nil {
			log.Warn().Err(err).
				Str("order_id", o.ID.String()).
				Msg("saving new address after order creation failed")
		}
	}
}

// Get returns one order. Customers can only read their own orders.
func (s *Service) Get(ctx context.Context, orderID, userID uuid.UUID, role string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if role == "customer" && o.UserID != userID {
		return nil, ErrForbidden
	}

	return o, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.repo.ListByUserID(ctx, userID, limit, offset)
}

// SetStatus runs the generic status setter. A transition to delivered
// triggers referrer-side crediting after the commit; an award failure
// is logged, never propagated, since the delivery already happened.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, to Status, note string, changedBy uuid.UUID) (*Order, error) {
	o, err := s.repo.SetStatus(ctx, orderID, to, note, changedBy)
	if err != nil {
		return nil, err
	}

	if to == StatusDelivered {
		if err := s.referrals.AwardIfEligible(ctx, orderID); err != nil {
			log.Error().Err(err).
				Str("order_id", orderID.String()).
				Msg("referral award after delivery failed")
		}
	}

	return o, nil
}

func (s *Service) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*Order, error) {
	return s.repo.Cancel(ctx, orderID, userID)
}

func (s *Service) AssignDriver(ctx context.Context, orderID uuid.UUID, driverID uuid.NullUUID, assignedBy uuid.UUID) (*Order, error) {
	return s.repo.AssignDriver(ctx, orderID, driverID, assignedBy)
}

func buildItems(inputs []ItemInput) ([]Item, error) {
	if len(inputs) == 0 {
		return nil, ErrNoItems
	}

	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		t := ServiceType(in.Type)
		if !t.Valid() {
			return nil, ErrInvalidService
		}
		if in.Quantity < 1 || in.UnitPrice.IsNegative() {
			return nil, &RejectedError{Reason: fmt.Sprintf("Invalid quantity or price for item %q", in.Name)}
		}
		items = append(items, Item{
			ItemType:  t,
			Name:      in.Name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}

	return items, nil
}

func buildAddons(types []string) ([]Addon, error) {
	addons := make([]Addon, 0, len(types))
	for _, t := range types {
		addonType := AddonType(t)
		price, err := AddonPrice(addonType)
		if err != nil {
			return nil, err
		}
		addons = append(addons, Addon{AddonType: addonType, Price: price})
	}
	return addons, nil
}
