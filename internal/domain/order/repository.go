package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 5 * time.Second

// order number collisions are retried with a fresh suffix
const maxOrderNoAttempts = 5

const orderColumns = `
	id, user_id, order_no, status, service_type, address_id, pickup_date, pickup_time_slot,
	subtotal, delivery_fee, discount, credit_applied, total, promo_code_id, payment_method,
	driver_id, assigned_at, assigned_by, special_instructions, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, o *Order, items []Item, prefs *Preferences, addons []Addon, payment *Payment) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, to Status, note string, changedBy uuid.UUID) (*Order, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (*Order, error)
	AssignDriver(ctx context.Context, orderID uuid.UUID, driverID uuid.NullUUID, assignedBy uuid.UUID) (*Order, error)
	OwnerID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
	CountDelivered(ctx context.Context, userID uuid.UUID) (int, error)
}

// OrderRepository persists orders and their child rows. Creation and
// every status mutation run as single transactions; a failure rolls
// the whole write back instead of leaving a partial order behind.
type OrderRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// newOrderNo builds a human-readable order number. The hex suffix comes
// from a fresh UUID; a unique index on order_no catches the rare
// collision and Create retries.
func newOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("BB-%d-%s", now.Year(), suffix)
}

// Create writes the order row, its items, preferences, selected addons,
// the payment record and the initial history row in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *Order, items []Item, prefs *Preferences, addons []Addon, payment *Payment) (*Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	created, err := r.insertOrder(ctx2, tx, o)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if _, err := tx.ExecContext(ctx2, `
			INSERT INTO order_items (id, order_id, item_type, name, quantity, unit_price)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		`, created.ID, items[i].ItemType, items[i].Name, items[i].Quantity, items[i].UnitPrice); err != nil {
			return nil, fmt.Errorf("%w: add order items", ErrInternal)
		}
	}

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO order_preferences (
			id, order_id, detergent_type, water_temperature, folding_style,
			fabric_softener, leave_at_door, delivery_notes
		)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
	`, created.ID, prefs.DetergentType, prefs.WaterTemperature, prefs.FoldingStyle,
		prefs.FabricSoftener, prefs.LeaveAtDoor, prefs.DeliveryNotes); err != nil {
		return nil, fmt.Errorf("%w: add order preferences", ErrInternal)
	}

	for i := range addons {
		if _, err := tx.ExecContext(ctx2, `
			INSERT INTO order_addons (id, order_id, addon_type, price)
			VALUES (gen_random_uuid(), $1, $2, $3)
		`, created.ID, addons[i].AddonType, addons[i].Price); err != nil {
			return nil, fmt.Errorf("%w: add order addons", ErrInternal)
		}
	}

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO payments (id, order_id, amount, method, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, created.ID, payment.Amount, payment.Method, payment.Status); err != nil {
		return nil, fmt.Errorf("%w: create payment record", ErrInternal)
	}

	if _, err := tx.ExecContext(ctx2, `
		INSERT INTO order_status_history (id, order_id, status, note, changed_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, created.ID, StatusPending, "Order placed", o.UserID); err != nil {
		return nil, fmt.Errorf("%w: add status history", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return r.GetByID(ctx, created.ID)
}

// insertOrder writes the order row, regenerating the order number on a
// unique-index collision.
func (r *OrderRepository) insertOrder(ctx context.Context, tx *sqlx.Tx, o *Order) (*Order, error) {
	for attempt := 0; attempt < maxOrderNoAttempts; attempt++ {
		orderNo := newOrderNo(time.Now())

		var created Order
		err := tx.GetContext(ctx, &created, `
			INSERT INTO orders (
				id, user_id, order_no, status, service_type, address_id, pickup_date, pickup_time_slot,
				subtotal, delivery_fee, discount, credit_applied, total, promo_code_id, payment_method,
				special_instructions
			)
			VALUES (
				gen_random_uuid(), $1, $2, 'pending', $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12, $13, $14
			)
			RETURNING `+orderColumns+`
		`, o.UserID, orderNo, o.ServiceType, o.AddressID, o.PickupDate, o.PickupTimeSlot,
			o.Subtotal, o.DeliveryFee, o.Discount, o.CreditApplied, o.Total, o.PromoCodeID,
			o.PaymentMethod, o.SpecialInstructions)
		if err == nil {
			return &created, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "order_no") {
			continue
		}
		return nil, fmt.Errorf("%w: create order", ErrInternal)
	}

	return nil, fmt.Errorf("%w: could not generate unique order number", ErrInternal)
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o Order
	err := r.db.GetContext(ctx2, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get order", ErrInternal)
	}

	o.Items = make([]Item, 0)
	if err := r.db.SelectContext(ctx2, &o.Items, `
		SELECT id, order_id, item_type, name, quantity, unit_price
		FROM order_items WHERE order_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("%w: get order items", ErrInternal)
	}

	var prefs Preferences
	err = r.db.GetContext(ctx2, &prefs, `
		SELECT id, order_id, detergent_type, water_temperature, folding_style,
		       fabric_softener, leave_at_door, delivery_notes
		FROM order_preferences WHERE order_id = $1
	`, id)
	if err == nil {
		o.Preferences = &prefs
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: get order preferences", ErrInternal)
	}

	o.Addons = make([]Addon, 0)
	if err := r.db.SelectContext(ctx2, &o.Addons, `
		SELECT id, order_id, addon_type, price
		FROM order_addons WHERE order_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("%w: get order addons", ErrInternal)
	}

	o.History = make([]StatusHistory, 0)
	if err := r.db.SelectContext(ctx2, &o.History, `
		SELECT id, order_id, status, note, changed_by, created_at
		FROM order_status_history WHERE order_id = $1
		ORDER BY created_at ASC
	`, id); err != nil {
		return nil, fmt.Errorf("%w: get status history", ErrInternal)
	}

	var payment Payment
	err = r.db.GetContext(ctx2, &payment, `
		SELECT id, order_id, amount, method, status, created_at, updated_at
		FROM payments WHERE order_id = $1
	`, id)
	if err == nil {
		o.Payment = &payment
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: get payment", ErrInternal)
	}

	return &o, nil
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	orders := make([]Order, 0)
	err := r.db.SelectContext(ctx2, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders", ErrInternal)
	}

	return orders, nil
}

// SetStatus moves an order through the fulfilment pipeline. The order
// row is locked so the transition check and the trip side effects see
// a consistent state under concurrent updates.
func (r *OrderRepository) SetStatus(ctx context.Context, orderID uuid.UUID, to Status, note string, changedBy uuid.UUID) (*Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	current, err := r.lockOrder(ctx2, tx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(current.Status, to) {
		return nil, ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, orderID, to); err != nil {
		return nil, fmt.Errorf("%w: update status", ErrInternal)
	}

	if note == "" {
		note = fmt.Sprintf("Status updated to %s", to)
	}
	if err := r.addHistory(ctx2, tx, orderID, string(to), note, uuid.NullUUID{UUID: changedBy, Valid: true}); err != nil {
		return nil, err
	}

	if err := r.applyTripEffects(ctx2, tx, current, to); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return r.GetByID(ctx, orderID)
}

// applyTripEffects maintains the driver trip records tied to status
// changes.
func (r *OrderRepository) applyTripEffects(ctx context.Context, tx *sqlx.Tx, o *Order, to Status) error {
	switch to {
	case StatusPickedUp:
		return r.startTrip(ctx, tx, o.ID, o.DriverID, TripPickup)
	case StatusAtFacility:
		return r.completeTrip(ctx, tx, o.ID, TripPickup)
	case StatusOutForDelivery:
		return r.startTrip(ctx, tx, o.ID, o.DriverID, TripDelivery)
	case StatusDelivered:
		return r.completeTrip(ctx, tx, o.ID, TripDelivery)
	}
	return nil
}

// startTrip reuses an open trip of the same type when one exists,
// refreshing its driver and start time, otherwise creates one.
func (r *OrderRepository) startTrip(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, driverID uuid.NullUUID, tripType TripType) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE driver_trips SET driver_id = $3, started_at = now()
		WHERE order_id = $1 AND type = $2 AND completed_at IS NULL
	`, orderID, tripType, driverID)
	if err != nil {
		return fmt.Errorf("%w: update trip", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows > 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO driver_trips (id, order_id, driver_id, type, started_at)
		VALUES (gen_random_uuid(), $1, $2, $3, now())
	`, orderID, driverID, tripType); err != nil {
		return fmt.Errorf("%w: create trip", ErrInternal)
	}

	return nil
}

func (r *OrderRepository) completeTrip(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, tripType TripType) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE driver_trips SET completed_at = now()
		WHERE order_id = $1 AND type = $2 AND completed_at IS NULL
	`, orderID, tripType); err != nil {
		return fmt.Errorf("%w: complete trip", ErrInternal)
	}
	return nil
}

// Cancel is the customer-facing cancellation path. Allowed only while
// the order has not been picked up; marks the payment refunded.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	current, err := r.lockOrder(ctx2, tx, orderID)
	if err != nil {
		return nil, err
	}

	if current.UserID != userID {
		return nil, ErrForbidden
	}

	if !Cancellable(current.Status) {
		return nil, ErrNotCancellable
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE orders SET status = 'cancelled', updated_at = now() WHERE id = $1
	`, orderID); err != nil {
		return nil, fmt.Errorf("%w: cancel order", ErrInternal)
	}

	if err := r.addHistory(ctx2, tx, orderID, string(StatusCancelled), "Cancelled by customer", uuid.NullUUID{UUID: userID, Valid: true}); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE payments SET status = 'refunded', updated_at = now() WHERE order_id = $1
	`, orderID); err != nil {
		return nil, fmt.Errorf("%w: refund payment", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return r.GetByID(ctx, orderID)
}

// AssignDriver sets or clears the order's driver independent of status.
// Assigning a driver eagerly opens a pickup trip stub.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID uuid.UUID, driverID uuid.NullUUID, assignedBy uuid.UUID) (*Order, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if _, err := r.lockOrder(ctx2, tx, orderID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE orders
		SET driver_id = $2, assigned_at = now(), assigned_by = $3, updated_at = now()
		WHERE id = $1
	`, orderID, driverID, assignedBy); err != nil {
		return nil, fmt.Errorf("%w: assign driver", ErrInternal)
	}

	event := "driver_unassigned"
	if driverID.Valid {
		event = "driver_assigned"
	}
	if err := r.addHistory(ctx2, tx, orderID, event, "", uuid.NullUUID{UUID: assignedBy, Valid: true}); err != nil {
		return nil, err
	}

	if driverID.Valid {
		if err := r.startTrip(ctx2, tx, orderID, driverID, TripPickup); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return r.GetByID(ctx, orderID)
}

func (r *OrderRepository) OwnerID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ownerID uuid.UUID
	err := r.db.GetContext(ctx2, &ownerID, `SELECT user_id FROM orders WHERE id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("%w: get order owner", ErrInternal)
	}

	return ownerID, nil
}

func (r *OrderRepository) CountDelivered(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = 'delivered'
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: count delivered orders", ErrInternal)
	}

	return count, nil
}

func (r *OrderRepository) lockOrder(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) (*Order, error) {
	var o Order
	err := tx.GetContext(ctx, &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: lock order", ErrInternal)
	}
	return &o, nil
}

func (r *OrderRepository) addHistory(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, status, note string, changedBy uuid.NullUUID) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, status, note, changed_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, orderID, status, note, changedBy); err != nil {
		return fmt.Errorf("%w: add status history", ErrInternal)
	}
	return nil
}
