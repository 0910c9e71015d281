package credit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type repoStub struct {
	entries  []Entry
	recorded []*Entry
	debited  decimal.Decimal
}

func (r *repoStub) Record(_ context.Context, e *Entry) error {
	r.recorded = append(r.recorded, e)
	return nil
}

func (r *repoStub) RecordTx(_ context.Context, _ *sqlx.Tx, e *Entry) error {
	r.recorded = append(r.recorded, e)
	return nil
}

func (r *repoStub) Debit(_ context.Context, _ uuid.UUID, amount decimal.Decimal, _ SourceType, _ uuid.UUID, _ string) error {
	r.debited = amount
	return nil
}

func (r *repoStub) ListByUserID(context.Context, uuid.UUID, Pagination) ([]Entry, error) {
	return r.entries, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGetBalanceSumsSignedDeltas(t *testing.T) {
	svc := NewService(&repoStub{entries: []Entry{
		{Type: EntryTypeRefereeBonus, Amount: d("5")},
		{Type: EntryTypeReferralBonus, Amount: d("10")},
		{Type: EntryTypeUsed, Amount: d("-3")},
	}})

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !balance.Equal(d("12")) {
		t.Fatalf("expected balance 12, got %s", balance)
	}
}

func TestGetBalanceHandlesLegacyPositiveDebits(t *testing.T) {
	// older rows stored "used" debits as positive magnitudes
	svc := NewService(&repoStub{entries: []Entry{
		{Type: EntryTypeReferralBonus, Amount: d("10")},
		{Type: EntryTypeUsed, Amount: d("4")},
	}})

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !balance.Equal(d("6")) {
		t.Fatalf("expected balance 6, got %s", balance)
	}
}

func TestGetBalanceExcludesExpiredEntries(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)
	svc := NewService(&repoStub{entries: []Entry{
		{Type: EntryTypeReferralBonus, Amount: d("10"), ExpiresAt: &yesterday},
		{Type: EntryTypeRefereeBonus, Amount: d("5"), ExpiresAt: &tomorrow},
	}})

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !balance.Equal(d("5")) {
		t.Fatalf("expected expired credit excluded, got %s", balance)
	}
}

func TestGetBalanceClampsNegativeToZero(t *testing.T) {
	svc := NewService(&repoStub{entries: []Entry{
		{Type: EntryTypeReferralBonus, Amount: d("5")},
		{Type: EntryTypeUsed, Amount: d("-8")},
	}})

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected clamped zero balance, got %s", balance)
	}
}

func TestGrantRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(&repoStub{})

	err := svc.Grant(context.Background(), uuid.New(), d("0"), EntryTypeAdminGrant, "", uuid.Nil, "grant", nil)
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	err = svc.Grant(context.Background(), uuid.New(), d("-5"), EntryTypeAdminGrant, "", uuid.Nil, "grant", nil)
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGrantRecordsEntry(t *testing.T) {
	repo := &repoStub{}
	svc := NewService(repo)

	orderID := uuid.New()
	err := svc.Grant(context.Background(), uuid.New(), d("10"), EntryTypeRefund, SourceTypeOrder, orderID, "Order cancelled", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(repo.recorded) != 1 {
		t.Fatalf("expected one entry, got %d", len(repo.recorded))
	}
	e := repo.recorded[0]
	if e.SourceType == nil || *e.SourceType != SourceTypeOrder {
		t.Fatal("expected order source type")
	}
	if e.SourceID == nil || *e.SourceID != orderID {
		t.Fatal("expected source id set")
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(&repoStub{})

	err := svc.Debit(context.Background(), uuid.New(), d("-1"), SourceTypeOrder, uuid.New(), "debit")
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
