package credit

import "errors"

var (
	// ErrInsufficientCredit is returned when a debit exceeds the user's balance
	ErrInsufficientCredit = errors.New("insufficient credit balance")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrUserNotFound is returned when user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	ErrInternal = errors.New("internal error")
)
