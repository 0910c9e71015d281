package promo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Code, error)
	IncrementUses(ctx context.Context, id uuid.UUID) error
}

// PromoRepository provides promo code lookups.
type PromoRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

// GetByCode fetches a code by its normalized form
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*Code, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Code
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, code, discount_type, discount_value, min_order_amount, max_uses, uses_count, expires_at, is_active, created_at
		FROM promo_codes
		WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: get promo code", ErrInternal)
	}

	return &c, nil
}

// IncrementUses bumps the use counter after an order using the code commits
func (r *PromoRepository) IncrementUses(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		UPDATE promo_codes
		SET uses_count = uses_count + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: increment uses", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrCodeNotFound
	}

	return nil
}
