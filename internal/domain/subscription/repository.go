package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

const subscriptionColumns = `
	id, user_id, plan_id, status, pickup_weekday, pickup_time_slot, address_id,
	started_at, next_pickup_at, cancelled_at, created_at, updated_at`

type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlanByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Create(ctx context.Context, s *Subscription) (*Subscription, error)
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	SetStatus(ctx context.Context, id, userID uuid.UUID, status Status) (*Subscription, error)
}

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	plans := make([]Plan, 0)
	err := r.db.SelectContext(ctx2, &plans, `
		SELECT id, name, description, frequency, price_per_unit, bag_limit, is_active, created_at
		FROM subscription_plans
		WHERE is_active = true
		ORDER BY price_per_unit ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list plans", ErrInternal)
	}

	return plans, nil
}

func (r *SubscriptionRepository) GetPlanByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Plan
	err := r.db.GetContext(ctx2, &p, `
		SELECT id, name, description, frequency, price_per_unit, bag_limit, is_active, created_at
		FROM subscription_plans
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%w: get plan", ErrInternal)
	}

	return &p, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *Subscription) (*Subscription, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var created Subscription
	err := r.db.GetContext(ctx2, &created, `
		INSERT INTO subscriptions (
			id, user_id, plan_id, status, pickup_weekday, pickup_time_slot, address_id,
			started_at, next_pickup_at
		)
		VALUES (gen_random_uuid(), $1, $2, 'active', $3, $4, $5, now(), $6)
		RETURNING `+subscriptionColumns+`
	`, s.UserID, s.PlanID, s.PickupWeekday, s.PickupTimeSlot, s.AddressID, s.NextPickupAt)
	if err != nil {
		return nil, fmt.Errorf("%w: create subscription", ErrInternal)
	}

	return &created, nil
}

func (r *SubscriptionRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Subscription
	err := r.db.GetContext(ctx2, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'paused')
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get active subscription", ErrInternal)
	}

	plan, err := r.GetPlanByID(ctx, s.PlanID)
	if err == nil {
		s.Plan = plan
	}

	return &s, nil
}

func (r *SubscriptionRepository) SetStatus(ctx context.Context, id, userID uuid.UUID, status Status) (*Subscription, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE subscriptions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + subscriptionColumns
	if status == StatusCancelled {
		query = `
			UPDATE subscriptions
			SET status = $3, cancelled_at = now(), updated_at = now()
			WHERE id = $1 AND user_id = $2
			RETURNING ` + subscriptionColumns
	}

	var s Subscription
	err := r.db.GetContext(ctx2, &s, query, id, userID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: update subscription status", ErrInternal)
	}

	return &s, nil
}
