package settings

import "errors"

var (
	ErrNotFound = errors.New("setting not found")
	ErrInternal = errors.New("internal error")
)
