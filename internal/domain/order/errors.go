package order

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
	ErrNoItems           = errors.New("order must have at least one item")
	ErrInvalidService    = errors.New("unknown service type")
	ErrInvalidAddon      = errors.New("unknown addon type")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrInternal          = errors.New("internal error")
)
