package referral

import "errors"

var (
	ErrCodeNotFound     = errors.New("referral code not found")
	ErrDuplicateCode    = errors.New("referral code already exists")
	ErrReferralNotFound = errors.New("referral not found")
	ErrInternal         = errors.New("internal error")
)
