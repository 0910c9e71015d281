package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/domain/credit"
)

const queryTimeout = 3 * time.Second

// ledger is the slice of the credit repository the referral engine
// needs: appending grant entries inside its own transactions.
type ledger interface {
	RecordTx(ctx context.Context, tx *sqlx.Tx, e *credit.Entry) error
}

// ApplyParams carries everything the apply transaction writes.
type ApplyParams struct {
	Code          *Code
	RefereeID     uuid.UUID
	RefereeBonus  decimal.Decimal
	ReferrerBonus decimal.Decimal
}

type Repository interface {
	GetCodeByUserID(ctx context.Context, userID uuid.UUID) (*Code, error)
	GetCodeByCode(ctx context.Context, code string) (*Code, error)
	CreateCode(ctx context.Context, c *Code) error
	GetByRefereeID(ctx context.Context, refereeID uuid.UUID) (*Referral, error)
	OldestPendingByRefereeID(ctx context.Context, refereeID uuid.UUID) (*Referral, error)
	ListByReferrerID(ctx context.Context, referrerID uuid.UUID) ([]Referral, error)
	Apply(ctx context.Context, p ApplyParams) (*Referral, error)
	Complete(ctx context.Context, ref *Referral, bonus decimal.Decimal) error
}

// ReferralRepository persists referral codes and records. The apply
// and complete sequences run as single transactions so a failure never
// leaves a half-credited referral behind.
type ReferralRepository struct {
	db     *sqlx.DB
	ledger ledger
}

func NewRepository(db *sqlx.DB, ledger ledger) *ReferralRepository {
	return &ReferralRepository{db: db, ledger: ledger}
}

func (r *ReferralRepository) GetCodeByUserID(ctx context.Context, userID uuid.UUID) (*Code, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Code
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, user_id, code, is_active, max_uses, uses_count, reward_amount, created_at
		FROM referral_codes
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: get code by user", ErrInternal)
	}

	return &c, nil
}

func (r *ReferralRepository) GetCodeByCode(ctx context.Context, code string) (*Code, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Code
	err := r.db.GetContext(ctx2, &c, `
		SELECT id, user_id, code, is_active, max_uses, uses_count, reward_amount, created_at
		FROM referral_codes
		WHERE code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: get code", ErrInternal)
	}

	return &c, nil
}

func (r *ReferralRepository) CreateCode(ctx context.Context, c *Code) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO referral_codes (id, user_id, code, is_active, max_uses, reward_amount)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	`, c.UserID, c.Code, c.IsActive, c.MaxUses, c.RewardAmount)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("%w: create code", ErrInternal)
	}

	return nil
}

func (r *ReferralRepository) GetByRefereeID(ctx context.Context, refereeID uuid.UUID) (*Referral, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ref Referral
	err := r.db.GetContext(ctx2, &ref, `
		SELECT id, referrer_id, referee_id, code_used, status, referrer_credited, referee_credited,
		       referrer_credit_amount, referee_credit_amount, completed_at, created_at
		FROM referrals
		WHERE referee_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, refereeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("%w: get referral by referee", ErrInternal)
	}

	return &ref, nil
}

func (r *ReferralRepository) OldestPendingByRefereeID(ctx context.Context, refereeID uuid.UUID) (*Referral, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ref Referral
	err := r.db.GetContext(ctx2, &ref, `
		SELECT id, referrer_id, referee_id, code_used, status, referrer_credited, referee_credited,
		       referrer_credit_amount, referee_credit_amount, completed_at, created_at
		FROM referrals
		WHERE referee_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
	`, refereeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReferralNotFound
		}
		return nil, fmt.Errorf("%w: get pending referral", ErrInternal)
	}

	return &ref, nil
}

func (r *ReferralRepository) ListByReferrerID(ctx context.Context, referrerID uuid.UUID) ([]Referral, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	referrals := make([]Referral, 0)
	err := r.db.SelectContext(ctx2, &referrals, `
		SELECT id, referrer_id, referee_id, code_used, status, referrer_credited, referee_credited,
		       referrer_credit_amount, referee_credit_amount, completed_at, created_at
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list referrals", ErrInternal)
	}

	return referrals, nil
}

// Apply creates the pending referral record, bumps the code's use
// counter, credits the referee and stamps the referee's user row, all
// in one transaction.
func (r *ReferralRepository) Apply(ctx context.Context, p ApplyParams) (*Referral, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	var ref Referral
	err = tx.GetContext(ctx2, &ref, `
		INSERT INTO referrals (
			id, referrer_id, referee_id, code_used, status,
			referrer_credited, referee_credited, referrer_credit_amount, referee_credit_amount
		)
		VALUES (gen_random_uuid(), $1, $2, $3, 'pending', false, true, $4, $5)
		RETURNING id, referrer_id, referee_id, code_used, status, referrer_credited, referee_credited,
		          referrer_credit_amount, referee_credit_amount, completed_at, created_at
	`, p.Code.UserID, p.RefereeID, p.Code.Code, p.ReferrerBonus, p.RefereeBonus)
	if err != nil {
		return nil, fmt.Errorf("%w: insert referral", ErrInternal)
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE referral_codes SET uses_count = uses_count + 1 WHERE id = $1
	`, p.Code.ID); err != nil {
		return nil, fmt.Errorf("%w: increment code uses", ErrInternal)
	}

	refID := ref.ID
	st := credit.SourceTypeReferral
	if err := r.ledger.RecordTx(ctx2, tx, &credit.Entry{
		UserID:      p.RefereeID,
		Amount:      p.RefereeBonus,
		Type:        credit.EntryTypeRefereeBonus,
		SourceType:  &st,
		SourceID:    &refID,
		Description: "Referral signup bonus",
	}); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE users SET referred_by = $1, referral_code_used = $2, updated_at = now() WHERE id = $3
	`, p.Code.UserID, p.Code.Code, p.RefereeID); err != nil {
		return nil, fmt.Errorf("%w: stamp referee", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &ref, nil
}

// Complete credits the referrer and marks the referral completed in
// one transaction. The referrer_credited guard makes completion
// idempotent: a second call finds no row to update and changes nothing.
func (r *ReferralRepository) Complete(ctx context.Context, ref *Referral, bonus decimal.Decimal) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx2, `
		UPDATE referrals
		SET status = 'completed', referrer_credited = true, referrer_credit_amount = $2, completed_at = now()
		WHERE id = $1 AND referrer_credited = false
	`, ref.ID, bonus)
	if err != nil {
		return fmt.Errorf("%w: complete referral", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		// Already credited by a concurrent completion
		return nil
	}

	refID := ref.ID
	st := credit.SourceTypeReferral
	if err := r.ledger.RecordTx(ctx2, tx, &credit.Entry{
		UserID:      ref.ReferrerID,
		Amount:      bonus,
		Type:        credit.EntryTypeReferralBonus,
		SourceType:  &st,
		SourceID:    &refID,
		Description: "Referral reward: friend completed first order",
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}
