package promo

import "errors"

var (
	ErrCodeNotFound = errors.New("promo code not found")
	ErrInternal     = errors.New("internal error")
)
