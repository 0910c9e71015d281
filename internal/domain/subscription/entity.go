package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring pickup happens.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// Status of a recurring pickup subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Plan is a recurring pickup plan the customer can subscribe to.
type Plan struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Frequency    Frequency       `db:"frequency" json:"frequency"`
	PricePerUnit decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	BagLimit     int             `db:"bag_limit" json:"bag_limit"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Subscription is a customer's enrollment in a plan.
type Subscription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	PlanID         uuid.UUID  `db:"plan_id" json:"plan_id"`
	Status         Status     `db:"status" json:"status"`
	PickupWeekday  int        `db:"pickup_weekday" json:"pickup_weekday"`
	PickupTimeSlot string     `db:"pickup_time_slot" json:"pickup_time_slot"`
	AddressID      *uuid.UUID `db:"address_id" json:"address_id,omitempty"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	NextPickupAt   *time.Time `db:"next_pickup_at" json:"next_pickup_at,omitempty"`
	CancelledAt    *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	Plan *Plan `db:"-" json:"plan,omitempty"`
}
