package referral

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type repoStub struct {
	codeByUser *Code
	codeByCode *Code
	byReferee  *Referral
	pending    *Referral

	applied        *ApplyParams
	completedBonus decimal.Decimal
	completedCount int
}

func (r *repoStub) GetCodeByUserID(context.Context, uuid.UUID) (*Code, error) {
	if r.codeByUser == nil {
		return nil, ErrCodeNotFound
	}
	return r.codeByUser, nil
}

func (r *repoStub) GetCodeByCode(context.Context, string) (*Code, error) {
	if r.codeByCode == nil {
		return nil, ErrCodeNotFound
	}
	return r.codeByCode, nil
}

func (r *repoStub) CreateCode(_ context.Context, c *Code) error {
	r.codeByUser = c
	return nil
}

func (r *repoStub) GetByRefereeID(context.Context, uuid.UUID) (*Referral, error) {
	if r.byReferee == nil {
		return nil, ErrReferralNotFound
	}
	return r.byReferee, nil
}

func (r *repoStub) OldestPendingByRefereeID(context.Context, uuid.UUID) (*Referral, error) {
	if r.pending == nil {
		return nil, ErrReferralNotFound
	}
	return r.pending, nil
}

func (r *repoStub) ListByReferrerID(context.Context, uuid.UUID) ([]Referral, error) {
	return nil, nil
}

func (r *repoStub) Apply(_ context.Context, p ApplyParams) (*Referral, error) {
	r.applied = &p
	ref := &Referral{
		ID:                   uuid.New(),
		ReferrerID:           p.Code.UserID,
		RefereeID:            p.RefereeID,
		CodeUsed:             p.Code.Code,
		Status:               StatusPending,
		RefereeCredited:      true,
		ReferrerCreditAmount: p.ReferrerBonus,
		RefereeCreditAmount:  p.RefereeBonus,
	}
	r.byReferee = ref
	return ref, nil
}

func (r *repoStub) Complete(_ context.Context, ref *Referral, bonus decimal.Decimal) error {
	r.completedBonus = bonus
	r.completedCount++
	return nil
}

type userStub struct{ name string }

func (u *userStub) GetName(context.Context, uuid.UUID) (string, error) { return u.name, nil }

type orderStub struct {
	owner     uuid.UUID
	delivered int
}

func (o *orderStub) OwnerID(context.Context, uuid.UUID) (uuid.UUID, error) { return o.owner, nil }
func (o *orderStub) CountDelivered(context.Context, uuid.UUID) (int, error) {
	return o.delivered, nil
}

type settingsStub struct{ values map[string]string }

func (s *settingsStub) GetDecimal(_ context.Context, key string, def decimal.Decimal) decimal.Decimal {
	if raw, ok := s.values[key]; ok {
		return decimal.RequireFromString(raw)
	}
	return def
}

func newTestService(repo *repoStub, orders *orderStub) *Service {
	return NewService(repo, &userStub{name: "Jamie Rivera"}, orders, &settingsStub{})
}

func TestIssueCodeReturnsExisting(t *testing.T) {
	existing := &Code{ID: uuid.New(), Code: "JAMIER42", IsActive: true}
	svc := newTestService(&repoStub{codeByUser: existing}, &orderStub{})

	code, err := svc.IssueCode(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if code.Code != "JAMIER42" {
		t.Fatalf("expected existing code, got %s", code.Code)
	}
}

func TestIssueCodeGeneratesFromName(t *testing.T) {
	repo := &repoStub{}
	svc := newTestService(repo, &orderStub{})

	code, err := svc.IssueCode(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(code.Code, "JAMIER") {
		t.Fatalf("expected JAMIER prefix, got %s", code.Code)
	}
	if len(code.Code) != len("JAMIER")+2 {
		t.Fatalf("expected prefix plus 2 digits, got %s", code.Code)
	}
	if !code.IsActive {
		t.Fatal("generated code should be active")
	}
}

func TestIssueCodeFallsBackForShortName(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo, &userStub{name: "苏 Li"}, &orderStub{}, &settingsStub{})

	code, err := svc.IssueCode(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(code.Code, "BUBBLE") || len(code.Code) != len("BUBBLE")+4 {
		t.Fatalf("expected BUBBLE#### fallback, got %s", code.Code)
	}
}

func TestValidateCodeMaxUsesReached(t *testing.T) {
	one := 1
	svc := newTestService(&repoStub{codeByCode: &Code{
		ID: uuid.New(), UserID: uuid.New(), Code: "JAMIER42",
		IsActive: true, MaxUses: &one, UsesCount: 1,
	}}, &orderStub{})

	v, err := svc.ValidateCode(context.Background(), "JAMIER42")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.Valid {
		t.Fatal("expected valid=false")
	}
	if !strings.Contains(v.Message, "reached its maximum uses") {
		t.Fatalf("unexpected message: %q", v.Message)
	}
}

func TestValidateCodeIncludesRefereeBonus(t *testing.T) {
	repo := &repoStub{codeByCode: &Code{ID: uuid.New(), UserID: uuid.New(), Code: "JAMIER42", IsActive: true}}
	svc := NewService(repo, &userStub{}, &orderStub{}, &settingsStub{values: map[string]string{
		"referral_referee_bonus": "7.50",
	}})

	v, err := svc.ValidateCode(context.Background(), "jamier42")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !v.Valid {
		t.Fatalf("expected valid=true, got message %q", v.Message)
	}
	if !strings.Contains(v.Message, "$7.50") {
		t.Fatalf("message should name the bonus, got %q", v.Message)
	}
}

func TestApplyRejectsSecondReferral(t *testing.T) {
	refereeID := uuid.New()
	svc := newTestService(&repoStub{
		codeByCode: &Code{ID: uuid.New(), UserID: uuid.New(), Code: "JAMIER42", IsActive: true},
		byReferee:  &Referral{ID: uuid.New(), RefereeID: refereeID, Status: StatusPending},
	}, &orderStub{})

	result, err := svc.Apply(context.Background(), "JAMIER42", refereeID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if result.Success {
		t.Fatal("second referral for the same referee must be rejected")
	}
}

func TestApplyRejectsSelfReferral(t *testing.T) {
	ownerID := uuid.New()
	svc := newTestService(&repoStub{
		codeByCode: &Code{ID: uuid.New(), UserID: ownerID, Code: "JAMIER42", IsActive: true},
	}, &orderStub{})

	result, err := svc.Apply(context.Background(), "JAMIER42", ownerID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if result.Success {
		t.Fatal("self-referral must be rejected")
	}
}

func TestApplyCreditsRefereeWithDefaultBonus(t *testing.T) {
	repo := &repoStub{
		codeByCode: &Code{ID: uuid.New(), UserID: uuid.New(), Code: "JAMIER42", IsActive: true},
	}
	svc := newTestService(repo, &orderStub{})

	result, err := svc.Apply(context.Background(), "JAMIER42", uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if !result.CreditAmount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected default referee bonus 5, got %s", result.CreditAmount)
	}
	if repo.applied == nil || !repo.applied.ReferrerBonus.Equal(decimal.NewFromInt(10)) {
		t.Fatal("expected default referrer bonus 10 recorded on the referral")
	}
}

func TestApplyUsesCodeRewardAmount(t *testing.T) {
	reward := decimal.NewFromInt(25)
	repo := &repoStub{
		codeByCode: &Code{ID: uuid.New(), UserID: uuid.New(), Code: "JAMIER42", IsActive: true, RewardAmount: &reward},
	}
	svc := newTestService(repo, &orderStub{})

	if _, err := svc.Apply(context.Background(), "JAMIER42", uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !repo.applied.ReferrerBonus.Equal(reward) {
		t.Fatalf("expected referrer bonus %s, got %s", reward, repo.applied.ReferrerBonus)
	}
}

func TestAwardIfEligibleSkipsRepeatCustomers(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{pending: &Referral{ID: uuid.New(), RefereeID: owner, Status: StatusPending}}
	svc := newTestService(repo, &orderStub{owner: owner, delivered: 2})

	if err := svc.AwardIfEligible(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.completedCount != 0 {
		t.Fatal("no award expected past the first delivered order")
	}
}

func TestAwardIfEligibleCreditsReferrerOnce(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{pending: &Referral{
		ID:                   uuid.New(),
		ReferrerID:           uuid.New(),
		RefereeID:            owner,
		Status:               StatusPending,
		ReferrerCreditAmount: decimal.NewFromInt(12),
	}}
	svc := newTestService(repo, &orderStub{owner: owner, delivered: 1})

	if err := svc.AwardIfEligible(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.completedCount != 1 {
		t.Fatalf("expected one completion, got %d", repo.completedCount)
	}
	if !repo.completedBonus.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected stored bonus 12, got %s", repo.completedBonus)
	}
}

func TestAwardIfEligibleFallsBackToSetting(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{pending: &Referral{ID: uuid.New(), ReferrerID: uuid.New(), RefereeID: owner, Status: StatusPending}}
	svc := newTestService(repo, &orderStub{owner: owner, delivered: 1})

	if err := svc.AwardIfEligible(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !repo.completedBonus.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected default bonus 10, got %s", repo.completedBonus)
	}
}

func TestAwardIfEligibleNoReferral(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{}
	svc := newTestService(repo, &orderStub{owner: owner, delivered: 1})

	if err := svc.AwardIfEligible(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.completedCount != 0 {
		t.Fatal("no completion expected without a pending referral")
	}
}

func TestAwardIfEligibleAlreadyCredited(t *testing.T) {
	owner := uuid.New()
	repo := &repoStub{pending: &Referral{ID: uuid.New(), RefereeID: owner, Status: StatusPending, ReferrerCredited: true}}
	svc := newTestService(repo, &orderStub{owner: owner, delivered: 1})

	if err := svc.AwardIfEligible(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if repo.completedCount != 0 {
		t.Fatal("no completion expected when referrer already credited")
	}
}
