package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents an order's position in the fulfilment pipeline.
type Status string

const (
	StatusPending        Status = "pending"
	StatusScheduled      Status = "scheduled"
	StatusConfirmed      Status = "confirmed"
	StatusPickedUp       Status = "picked_up"
	StatusAtFacility     Status = "at_facility"
	StatusCleaning       Status = "cleaning"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// ServiceType is the kind of cleaning an order (or line item) is for.
type ServiceType string

const (
	ServiceLaundry      ServiceType = "laundry"
	ServiceDryCleaning  ServiceType = "dry_cleaning"
	ServiceSuitCleaning ServiceType = "suit_cleaning"
	ServiceShoeCleaning ServiceType = "shoe_cleaning"
	ServiceMultiple     ServiceType = "multiple"
)

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceLaundry, ServiceDryCleaning, ServiceSuitCleaning, ServiceShoeCleaning, ServiceMultiple:
		return true
	}
	return false
}

// AddonType is a typed extra with a fixed price.
type AddonType string

const (
	AddonStainTreatment AddonType = "stain_treatment"
	AddonWhitening      AddonType = "whitening"
	AddonScentBoosters  AddonType = "scent_boosters"
	AddonRepairs        AddonType = "repairs"
)

// PaymentMethod is how the customer pays on delivery.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentWallet PaymentMethod = "wallet"
)

// PaymentStatus tracks the payment record attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// TripType distinguishes a driver's pickup leg from the delivery leg.
type TripType string

const (
	TripPickup   TripType = "pickup"
	TripDelivery TripType = "delivery"
)

// Order is the accounting view of a placed order. Money fields are
// components of the final total: Total = Subtotal + DeliveryFee -
// Discount - CreditApplied, never negative.
type Order struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	OrderNo     string      `db:"order_no" json:"order_no"`
	Status      Status      `db:"status" json:"status"`
	ServiceType ServiceType `db:"service_type" json:"service_type"`

	AddressID      *uuid.UUID `db:"address_id" json:"address_id,omitempty"`
	PickupDate     *time.Time `db:"pickup_date" json:"pickup_date,omitempty"`
	PickupTimeSlot string     `db:"pickup_time_slot" json:"pickup_time_slot,omitempty"`

	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryFee   decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	CreditApplied decimal.Decimal `db:"credit_applied" json:"credit_applied"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PromoCodeID   *uuid.UUID      `db:"promo_code_id" json:"promo_code_id,omitempty"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`

	DriverID   uuid.NullUUID `db:"driver_id" json:"driver_id,omitempty"`
	AssignedAt *time.Time    `db:"assigned_at" json:"assigned_at,omitempty"`
	AssignedBy uuid.NullUUID `db:"assigned_by" json:"assigned_by,omitempty"`

	SpecialInstructions string `db:"special_instructions" json:"special_instructions,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Loaded on single-order fetches, nil in lists
	Items       []Item          `db:"-" json:"items,omitempty"`
	Preferences *Preferences    `db:"-" json:"preferences,omitempty"`
	Addons      []Addon         `db:"-" json:"addons,omitempty"`
	History     []StatusHistory `db:"-" json:"history,omitempty"`
	Payment     *Payment        `db:"-" json:"payment,omitempty"`
}

// Item is a single line on an order.
type Item struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	ItemType  ServiceType     `db:"item_type" json:"item_type"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Preferences holds the wash/fold/delivery options. A row is written
// for every order even when all fields are defaults.
type Preferences struct {
	ID               uuid.UUID `db:"id" json:"id"`
	OrderID          uuid.UUID `db:"order_id" json:"order_id"`
	DetergentType    string    `db:"detergent_type" json:"detergent_type,omitempty"`
	WaterTemperature string    `db:"water_temperature" json:"water_temperature,omitempty"`
	FoldingStyle     string    `db:"folding_style" json:"folding_style,omitempty"`
	FabricSoftener   bool      `db:"fabric_softener" json:"fabric_softener"`
	LeaveAtDoor      bool      `db:"leave_at_door" json:"leave_at_door"`
	DeliveryNotes    string    `db:"delivery_notes" json:"delivery_notes,omitempty"`
}

// Addon is a selected extra with its fixed price captured at order time.
type Addon struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	AddonType AddonType       `db:"addon_type" json:"addon_type"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// StatusHistory is one row of the order's audit trail.
type StatusHistory struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	OrderID   uuid.UUID     `db:"order_id" json:"order_id"`
	Status    string        `db:"status" json:"status"`
	Note      string        `db:"note" json:"note"`
	ChangedBy uuid.NullUUID `db:"changed_by" json:"changed_by,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Trip is a driver's timed pickup or delivery leg for one order.
type Trip struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	OrderID     uuid.UUID     `db:"order_id" json:"order_id"`
	DriverID    uuid.NullUUID `db:"driver_id" json:"driver_id,omitempty"`
	Type        TripType      `db:"type" json:"type"`
	StartedAt   time.Time     `db:"started_at" json:"started_at"`
	CompletedAt *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// Payment is the payment record created alongside the order.
type Payment struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OrderID   uuid.UUID       `db:"order_id" json:"order_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Method    PaymentMethod   `db:"method" json:"method"`
	Status    PaymentStatus   `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
