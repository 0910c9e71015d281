package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const queryTimeout = 3 * time.Second

// activeDeltaSum computes the expiry-filtered balance in SQL, using the
// same legacy-encoding rule as Entry.Delta.
const activeDeltaSum = `
	SELECT COALESCE(SUM(CASE WHEN type = 'used' AND amount > 0 THEN -amount ELSE amount END), 0)
	FROM credit_entries
	WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())`

type Repository interface {
	Record(ctx context.Context, e *Entry) error
	RecordTx(ctx context.Context, tx *sqlx.Tx, e *Entry) error
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType SourceType, sourceID uuid.UUID, description string) error
	ListByUserID(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]Entry, error)
}

// CreditRepository provides ledger append and atomic debit operations.
type CreditRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Record(ctx context.Context, e *Entry) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.insertEntry(ctx2, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// RecordTx appends an entry within an external transaction.
// The caller owns the transaction and is responsible for commit or rollback.
func (r *CreditRepository) RecordTx(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	return r.insertEntry(ctx, tx, e)
}

// Debit spends credit against a source. The user row is locked for the
// duration of the transaction so concurrent debits recompute the balance
// serially instead of racing a stale read.
func (r *CreditRepository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType SourceType, sourceID uuid.UUID, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var lockedID uuid.UUID
	err = tx.QueryRowContext(ctx2, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: lock user row", ErrInternal)
	}

	var balance decimal.Decimal
	if err := tx.GetContext(ctx2, &balance, activeDeltaSum, userID); err != nil {
		return fmt.Errorf("%w: compute balance", ErrInternal)
	}

	if balance.LessThan(amount) {
		return ErrInsufficientCredit
	}

	st := sourceType
	sid := sourceID
	entry := &Entry{
		UserID:      userID,
		Amount:      amount.Neg(),
		Type:        EntryTypeUsed,
		SourceType:  &st,
		SourceID:    &sid,
		Description: description,
	}
	if err := r.insertEntry(ctx2, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

func (r *CreditRepository) ListByUserID(ctx context.Context, userID uuid.UUID, pagination Pagination) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, amount, type, source_type, source_id, description, expires_at, created_at
		FROM credit_entries
		WHERE user_id = $1
		ORDER BY created_at DESC`
	args := []interface{}{userID}

	// zero limit means the whole ledger: balance computation needs
	// every entry
	if pagination.Limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, pagination.Limit, pagination.Offset)
	}

	entries := make([]Entry, 0)
	if err := r.db.SelectContext(ctx2, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list entries", ErrInternal)
	}

	return entries, nil
}

func (r *CreditRepository) insertEntry(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	if e.Type == "" {
		return ErrInternal
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_entries (
			id, user_id, amount, type, source_type, source_id, description, expires_at
		)
		VALUES (
			gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7
		)
	`, e.UserID, e.Amount, e.Type, e.SourceType, e.SourceID, e.Description, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: insert entry", ErrInternal)
	}

	return nil
}
