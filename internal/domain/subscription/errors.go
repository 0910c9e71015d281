package subscription

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanInactive      = errors.New("plan is not available")
	ErrNotFound          = errors.New("subscription not found")
	ErrAlreadySubscribed = errors.New("user already has an active subscription")
	ErrNotActive         = errors.New("subscription is not active")
	ErrInternal          = errors.New("internal error")
)
