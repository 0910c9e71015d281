package settings

import "time"

// Well-known setting keys. Callers always supply their own default,
// so a missing row never fails a request.
const (
	KeyDeliveryFee         = "delivery_fee"
	KeyReferrerBonus       = "referral_referrer_bonus"
	KeyRefereeBonus        = "referral_referee_bonus"
	KeyFreeDeliveryMinimum = "free_delivery_threshold"
)

// Setting is a single key/value row
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
