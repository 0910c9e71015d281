package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Service exposes the credit ledger operations used by checkout and referrals.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Grant appends a positive ledger entry for the user.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, entryType EntryType, sourceType SourceType, sourceID uuid.UUID, description string, expiresAt *time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	entry := &Entry{
		UserID:      userID,
		Amount:      amount,
		Type:        entryType,
		Description: description,
		ExpiresAt:   expiresAt,
	}
	if sourceType != "" {
		st := sourceType
		entry.SourceType = &st
	}
	if sourceID != uuid.Nil {
		sid := sourceID
		entry.SourceID = &sid
	}

	return s.repo.Record(ctx, entry)
}

// Debit spends credit against a source. The repository recomputes the
// balance under a row lock, so a stale balance read can never overdraw.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, sourceType SourceType, sourceID uuid.UUID, description string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.repo.Debit(ctx, userID, amount, sourceType, sourceID, description)
}

// GetBalance returns the user's spendable credit: the sum of effective
// deltas over non-expired entries. A negative raw sum means duplicate
// debits slipped into the ledger; it is logged and clamped to zero
// rather than surfaced as a negative balance.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	entries, err := s.repo.ListByUserID(ctx, userID, Pagination{})
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	balance := decimal.Zero
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		balance = balance.Add(e.Delta())
	}

	if balance.IsNegative() {
		log.Warn().
			Str("user_id", userID.String()).
			Str("raw_balance", balance.StringFixed(2)).
			Msg("credit ledger sums negative, clamping to zero")
		return decimal.Zero, nil
	}

	return balance, nil
}

// ListEntries returns paginated ledger history for a user.
func (s *Service) ListEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListByUserID(ctx, userID, Pagination{Limit: limit, Offset: offset})
}
