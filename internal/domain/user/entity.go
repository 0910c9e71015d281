package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the system (matches user_role enum)
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// User represents a user account (matches actual users table)
type User struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Email string    `db:"email" json:"email"`
	Name  string    `db:"name" json:"name"`
	Phone string    `db:"phone" json:"phone,omitempty"`
	Role  Role      `db:"role" json:"role"`

	// Referral stamps, set once when a referral code is applied at signup
	ReferredBy       uuid.NullUUID  `db:"referred_by" json:"-"`
	ReferralCodeUsed sql.NullString `db:"referral_code_used" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
