package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/bubblebox/bubblebox-api/internal/domain/settings"
)

const (
	codePrefixMaxLen = 6
	codePrefixMinLen = 3

	defaultReferrerBonus = "10"
	defaultRefereeBonus  = "5"

	// issueCode retries on duplicate generated codes
	maxCodeAttempts = 5
)

// UserReader resolves the user data the engine needs without importing
// the user package.
type UserReader interface {
	GetName(ctx context.Context, userID uuid.UUID) (string, error)
}

// OrderReader resolves order ownership and delivery counts for
// referrer-side awarding.
type OrderReader interface {
	OwnerID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
	CountDelivered(ctx context.Context, userID uuid.UUID) (int, error)
}

// SettingsProvider supplies the dynamic bonus amounts.
type SettingsProvider interface {
	GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal
}

// Service implements referral-code issuance, validation, application
// and the referrer-side award on first delivery.
type Service struct {
	repo     Repository
	users    UserReader
	orders   OrderReader
	settings SettingsProvider
}

func NewService(repo Repository, users UserReader, orders OrderReader, settings SettingsProvider) *Service {
	return &Service{repo: repo, users: users, orders: orders, settings: settings}
}

// IssueCode returns the user's referral code, generating one on first
// access.
func (s *Service) IssueCode(ctx context.Context, userID uuid.UUID) (*Code, error) {
	existing, err := s.repo.GetCodeByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCodeNotFound) {
		return nil, err
	}

	name, err := s.users.GetName(ctx, userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c := &Code{
			UserID:   userID,
			Code:     generateCode(name),
			IsActive: true,
		}
		err := s.repo.CreateCode(ctx, c)
		if err == nil {
			return s.repo.GetCodeByUserID(ctx, userID)
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}
		// Another user holds this code; regenerate. A duplicate on
		// user_id means a concurrent request already issued ours.
		if existing, lookupErr := s.repo.GetCodeByUserID(ctx, userID); lookupErr == nil {
			return existing, nil
		}
	}

	return nil, fmt.Errorf("%w: could not generate unique referral code", ErrInternal)
}

// ValidateCode checks a code before signup and reports the referee
// bonus the new user would receive.
func (s *Service) ValidateCode(ctx context.Context, code string) (*Validation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &Validation{Valid: false, Message: "Please enter a referral code"}, nil
	}

	c, err := s.repo.GetCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return &Validation{Valid: false, Message: "Invalid referral code"}, nil
		}
		return nil, err
	}

	if !c.IsActive {
		return &Validation{Valid: false, Message: "This referral code is no longer active"}, nil
	}

	if c.MaxUses != nil && c.UsesCount >= *c.MaxUses {
		return &Validation{Valid: false, Message: "This referral code has reached its maximum uses"}, nil
	}

	bonus := s.refereeBonus(ctx)
	return &Validation{
		Valid:   true,
		Message: fmt.Sprintf("Valid code! You'll get $%s in credit after signing up", bonus.StringFixed(2)),
	}, nil
}

// Apply records a referral for a newly signed-up user and credits the
// referee immediately. The referrer is credited later, on the
// referee's first delivered order.
func (s *Service) Apply(ctx context.Context, code string, newUserID uuid.UUID) (*ApplyResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	reject := func(msg string) *ApplyResult {
		return &ApplyResult{Success: false, Message: msg}
	}

	if _, err := s.repo.GetByRefereeID(ctx, newUserID); err == nil {
		return reject("You have already used a referral code"), nil
	} else if !errors.Is(err, ErrReferralNotFound) {
		return nil, err
	}

	c, err := s.repo.GetCodeByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return reject("Invalid referral code"), nil
		}
		return nil, err
	}

	if !c.IsActive {
		return reject("This referral code is no longer active"), nil
	}

	if c.UserID == newUserID {
		return reject("You can't use your own referral code"), nil
	}

	if c.MaxUses != nil && c.UsesCount >= *c.MaxUses {
		return reject("This referral code has reached its maximum uses"), nil
	}

	refereeBonus := s.refereeBonus(ctx)
	referrerBonus := s.referrerBonus(ctx, c)

	ref, err := s.repo.Apply(ctx, ApplyParams{
		Code:          c,
		RefereeID:     newUserID,
		RefereeBonus:  refereeBonus,
		ReferrerBonus: referrerBonus,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("referral_id", ref.ID.String()).
		Str("referrer_id", c.UserID.String()).
		Str("referee_id", newUserID.String()).
		Str("code", c.Code).
		Msg("referral applied")

	return &ApplyResult{
		Success:      true,
		Message:      fmt.Sprintf("Referral applied! $%s in credit has been added to your account", refereeBonus.StringFixed(2)),
		CreditAmount: refereeBonus,
	}, nil
}

// AwardIfEligible credits the referrer after the referee's first
// delivered order. Called by the order lifecycle on every delivery;
// anything but the referee's first delivery is a no-op.
func (s *Service) AwardIfEligible(ctx context.Context, orderID uuid.UUID) error {
	ownerID, err := s.orders.OwnerID(ctx, orderID)
	if err != nil {
		return err
	}

	delivered, err := s.orders.CountDelivered(ctx, ownerID)
	if err != nil {
		return err
	}
	if delivered > 1 {
		return nil
	}

	ref, err := s.repo.OldestPendingByRefereeID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrReferralNotFound) {
			return nil
		}
		return err
	}
	if ref.ReferrerCredited {
		return nil
	}

	bonus := ref.ReferrerCreditAmount
	if !bonus.IsPositive() {
		bonus = s.settings.GetDecimal(ctx, settings.KeyReferrerBonus, decimal.RequireFromString(defaultReferrerBonus))
	}

	if err := s.repo.Complete(ctx, ref, bonus); err != nil {
		return err
	}

	log.Info().
		Str("referral_id", ref.ID.String()).
		Str("referrer_id", ref.ReferrerID.String()).
		Str("order_id", orderID.String()).
		Str("bonus", bonus.StringFixed(2)).
		Msg("referrer credited for first delivered order")

	return nil
}

// ListReferrals returns the referral records where the user is the
// referrer.
func (s *Service) ListReferrals(ctx context.Context, userID uuid.UUID) ([]Referral, error) {
	return s.repo.ListByReferrerID(ctx, userID)
}

func (s *Service) refereeBonus(ctx context.Context) decimal.Decimal {
	return s.settings.GetDecimal(ctx, settings.KeyRefereeBonus, decimal.RequireFromString(defaultRefereeBonus))
}

func (s *Service) referrerBonus(ctx context.Context, c *Code) decimal.Decimal {
	if c.RewardAmount != nil && c.RewardAmount.IsPositive() {
		return *c.RewardAmount
	}
	return s.settings.GetDecimal(ctx, settings.KeyReferrerBonus, decimal.RequireFromString(defaultReferrerBonus))
}

// generateCode builds a shareable code from the user's name, padded
// with random digits. Names too short to yield a usable prefix fall
// back to BUBBLE####.
func generateCode(name string) string {
	prefix := sanitizePrefix(name)
	if len(prefix) < codePrefixMinLen {
		return "BUBBLE" + randomDigits(4)
	}
	return prefix + randomDigits(2)
}

func sanitizePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() >= codePrefixMaxLen {
				break
			}
		}
	}
	return b.String()
}

func randomDigits(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = digits[int(b[i])%len(digits)]
	}
	return string(b)
}
