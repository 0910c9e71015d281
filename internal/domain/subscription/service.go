package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubscribeRequest enrolls a user in a recurring pickup plan.
type SubscribeRequest struct {
	PlanID         uuid.UUID  `json:"plan_id" validate:"required"`
	PickupWeekday  int        `json:"pickup_weekday" validate:"min=0,max=6"`
	PickupTimeSlot string     `json:"pickup_time_slot" validate:"required,max=50"`
	AddressID      *uuid.UUID `json:"address_id"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

// Subscribe enrolls the user in a plan. One live subscription per user:
// an existing active or paused one blocks a new enrollment.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, req *SubscribeRequest) (*Subscription, error) {
	if _, err := s.repo.GetActiveByUserID(ctx, userID); err == nil {
		return nil, ErrAlreadySubscribed
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	plan, err := s.repo.GetPlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	next := nextPickup(time.Now(), time.Weekday(req.PickupWeekday))
	sub, err := s.repo.Create(ctx, &Subscription{
		UserID:         userID,
		PlanID:         plan.ID,
		PickupWeekday:  req.PickupWeekday,
		PickupTimeSlot: req.PickupTimeSlot,
		AddressID:      req.AddressID,
		NextPickupAt:   &next,
	})
	if err != nil {
		return nil, err
	}
	sub.Plan = plan

	log.Info().
		Str("subscription_id", sub.ID.String()).
		Str("user_id", userID.String()).
		Str("plan", plan.Name).
		Msg("subscription created")

	return sub, nil
}

func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.repo.GetActiveByUserID(ctx, userID)
}

// Pause suspends pickups without losing the slot.
func (s *Service) Pause(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	current, err := s.repo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusActive {
		return nil, ErrNotActive
	}
	return s.repo.SetStatus(ctx, current.ID, userID, StatusPaused)
}

// Resume reactivates a paused subscription.
func (s *Service) Resume(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	current, err := s.repo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPaused {
		return nil, ErrNotActive
	}
	return s.repo.SetStatus(ctx, current.ID, userID, StatusActive)
}

func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	current, err := s.repo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.SetStatus(ctx, current.ID, userID, StatusCancelled)
}

// nextPickup returns the next occurrence of the requested weekday,
// at least one full day out.
func nextPickup(from time.Time, weekday time.Weekday) time.Time {
	next := from.AddDate(0, 0, 1)
	for next.Weekday() != weekday {
		next = next.AddDate(0, 0, 1)
	}
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, from.Location())
}
