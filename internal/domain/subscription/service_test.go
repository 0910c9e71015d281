package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type repoStub struct {
	plan   *Plan
	active *Subscription

	created   *Subscription
	statusSet Status
}

func (r *repoStub) ListPlans(context.Context) ([]Plan, error) { return nil, nil }

func (r *repoStub) GetPlanByID(context.Context, uuid.UUID) (*Plan, error) {
	if r.plan == nil {
		return nil, ErrPlanNotFound
	}
	return r.plan, nil
}

func (r *repoStub) Create(_ context.Context, s *Subscription) (*Subscription, error) {
	s.ID = uuid.New()
	s.Status = StatusActive
	r.created = s
	return s, nil
}

func (r *repoStub) GetActiveByUserID(context.Context, uuid.UUID) (*Subscription, error) {
	if r.active == nil {
		return nil, ErrNotFound
	}
	return r.active, nil
}

func (r *repoStub) SetStatus(_ context.Context, _, _ uuid.UUID, status Status) (*Subscription, error) {
	r.statusSet = status
	return &Subscription{Status: status}, nil
}

func TestSubscribeRejectsSecondSubscription(t *testing.T) {
	svc := NewService(&repoStub{
		plan:   &Plan{ID: uuid.New(), IsActive: true},
		active: &Subscription{ID: uuid.New(), Status: StatusActive},
	})

	_, err := svc.Subscribe(context.Background(), uuid.New(), &SubscribeRequest{PlanID: uuid.New()})
	if err != ErrAlreadySubscribed {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestSubscribeRejectsInactivePlan(t *testing.T) {
	svc := NewService(&repoStub{plan: &Plan{ID: uuid.New(), IsActive: false}})

	_, err := svc.Subscribe(context.Background(), uuid.New(), &SubscribeRequest{PlanID: uuid.New()})
	if err != ErrPlanInactive {
		t.Fatalf("expected ErrPlanInactive, got %v", err)
	}
}

func TestSubscribeSchedulesNextPickup(t *testing.T) {
	repo := &repoStub{plan: &Plan{ID: uuid.New(), Name: "Weekly", Frequency: FrequencyWeekly, IsActive: true}}
	svc := NewService(repo)

	sub, err := svc.Subscribe(context.Background(), uuid.New(), &SubscribeRequest{
		PlanID:         repo.plan.ID,
		PickupWeekday:  int(time.Monday),
		PickupTimeSlot: "9am-12pm",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sub.NextPickupAt == nil {
		t.Fatal("expected next pickup scheduled")
	}
	if sub.NextPickupAt.Weekday() != time.Monday {
		t.Fatalf("expected Monday pickup, got %s", sub.NextPickupAt.Weekday())
	}
	if !sub.NextPickupAt.After(time.Now()) {
		t.Fatal("next pickup must be in the future")
	}
}

func TestPauseRequiresActive(t *testing.T) {
	svc := NewService(&repoStub{active: &Subscription{ID: uuid.New(), Status: StatusPaused}})

	if _, err := svc.Pause(context.Background(), uuid.New()); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	svc := NewService(&repoStub{active: &Subscription{ID: uuid.New(), Status: StatusActive}})

	if _, err := svc.Resume(context.Background(), uuid.New()); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestCancelSetsCancelled(t *testing.T) {
	repo := &repoStub{active: &Subscription{ID: uuid.New(), Status: StatusActive}}
	svc := NewService(repo)

	sub, err := svc.Cancel(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sub.Status != StatusCancelled || repo.statusSet != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", sub.Status)
	}
}

func TestNextPickupAlwaysAtLeastOneDayOut(t *testing.T) {
	// subscribing on a Monday for Monday pickups must not schedule today
	monday := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	next := nextPickup(monday, time.Monday)

	if !next.After(monday) {
		t.Fatal("next pickup must be after the subscription time")
	}
	if next.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", next.Weekday())
	}
	if next.Sub(monday) < 24*time.Hour {
		t.Fatalf("expected at least a full day out, got %s", next.Sub(monday))
	}
}
