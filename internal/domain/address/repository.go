package address

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

var (
	ErrNotFound = errors.New("address not found")
	ErrInternal = errors.New("internal error")
)

const addressColumns = `id, user_id, label, street, city, postal_code, notes, is_default, created_at, updated_at`

// Repository manages a user's address book. Setting a default clears
// any previous default in the same transaction.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *Address) (*Address, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if err := r.clearDefault(ctx2, tx, a.UserID); err != nil {
			return nil, err
		}
	}

	var created Address
	err = tx.GetContext(ctx2, &created, `
		INSERT INTO addresses (id, user_id, label, street, city, postal_code, notes, is_default)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING `+addressColumns+`
	`, a.UserID, a.Label, a.Street, a.City, a.PostalCode, a.Notes, a.IsDefault)
	if err != nil {
		return nil, fmt.Errorf("%w: create address", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &created, nil
}

func (r *Repository) GetByID(ctx context.Context, id, userID uuid.UUID) (*Address, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Address
	err := r.db.GetContext(ctx2, &a, `
		SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get address", ErrInternal)
	}

	return &a, nil
}

func (r *Repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	addresses := make([]Address, 0)
	err := r.db.SelectContext(ctx2, &addresses, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list addresses", ErrInternal)
	}

	return addresses, nil
}

func (r *Repository) Update(ctx context.Context, a *Address) (*Address, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if err := r.clearDefault(ctx2, tx, a.UserID); err != nil {
			return nil, err
		}
	}

	var updated Address
	err = tx.GetContext(ctx2, &updated, `
		UPDATE addresses
		SET label = $3, street = $4, city = $5, postal_code = $6, notes = $7, is_default = $8, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+addressColumns+`
	`, a.ID, a.UserID, a.Label, a.Street, a.City, a.PostalCode, a.Notes, a.IsDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: update address", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &updated, nil
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx2, `
		DELETE FROM addresses WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: delete address", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) clearDefault(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE addresses SET is_default = false WHERE user_id = $1 AND is_default = true
	`, userID); err != nil {
		return fmt.Errorf("%w: clear default address", ErrInternal)
	}
	return nil
}
