package address

import (
	"time"

	"github.com/google/uuid"
)

// Address is a saved pickup/delivery location in a user's address book.
type Address struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	Label      string    `db:"label" json:"label,omitempty"`
	Street     string    `db:"street" json:"street"`
	City       string    `db:"city" json:"city"`
	PostalCode string    `db:"postal_code" json:"postal_code"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
