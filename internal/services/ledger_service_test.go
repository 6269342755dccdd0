package services

import (
	"context"
	"errors"
	"testing"

	"budgetly/internal/core"

	"github.com/shopspring/decimal"
)

func TestLedgerAddNormalizesMonth(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice").User.ID

	cases := map[string]string{
		"January 2025":  "January 2025",
		"jan 2025":      "January 2025",
		"JANUARY-2025":  "January 2025",
		"Sept/2024":     "September 2024",
		" march  2026 ": "March 2026",
	}
	for in, want := range cases {
		e := f.add(t, owner, "Food", "12.5", in)
		if e.Month != want {
			t.Fatalf("Add(month=%q).Month = %q, want %q", in, e.Month, want)
		}
		if e.UserID != owner || e.Amount.Cents != 1250 || e.ID == "" {
			t.Fatalf("entry = %+v", e)
		}
	}
}

func TestLedgerAddValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice").User.ID
	ctx := context.Background()

	zero := decimal.Zero
	neg := decimal.RequireFromString("-3")
	tiny := decimal.RequireFromString("0.004")
	ok := decimal.RequireFromString("10")

	cases := []struct {
		name string
		in   core.EntryFields
		want error
	}{
		{"bad category", core.EntryFields{Category: sp("Groceries"), Amount: &ok, Month: sp("January 2025")}, core.ErrInvalidCategory},
		{"lowercase category", core.EntryFields{Category: sp("food"), Amount: &ok, Month: sp("January 2025")}, core.ErrInvalidCategory},
		{"missing category", core.EntryFields{Amount: &ok, Month: sp("January 2025")}, core.ErrInvalidCategory},
		{"zero amount", core.EntryFields{Category: sp("Food"), Amount: &zero, Month: sp("January 2025")}, core.ErrInvalidAmount},
		{"negative amount", core.EntryFields{Category: sp("Food"), Amount: &neg, Month: sp("January 2025")}, core.ErrInvalidAmount},
		{"sub-cent amount", core.EntryFields{Category: sp("Food"), Amount: &tiny, Month: sp("January 2025")}, core.ErrInvalidAmount},
		{"missing amount", core.EntryFields{Category: sp("Food"), Month: sp("January 2025")}, core.ErrInvalidAmount},
		{"bad month", core.EntryFields{Category: sp("Food"), Amount: &ok, Month: sp("2025-01")}, core.ErrInvalidMonth},
		{"missing month", core.EntryFields{Category: sp("Food"), Amount: &ok}, core.ErrInvalidMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Add(ctx, owner, tc.in)
			assertIs(t, err, tc.want)
			assertKind(t, err, core.KindValidation)
		})
	}
	if list, _ := f.ledger.List(ctx, owner); len(list) != 0 {
		t.Fatalf("invalid input persisted: %+v", list)
	}
}

func TestLedgerListScopedToOwner(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice").User.ID
	bob := f.register(t, "bob").User.ID
	f.add(t, alice, "Food", "10", "January 2025")
	f.add(t, bob, "Rent", "900", "January 2025")

	list, err := f.ledger.List(context.Background(), alice)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].UserID != alice {
		t.Fatalf("List(alice) = %+v", list)
	}
}

func TestLedgerUpdate(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice").User.ID
	e := f.add(t, owner, "Food", "10", "January 2025")
	ctx := context.Background()

	amount := decimal.RequireFromString("42.10")
	got, err := f.ledger.Update(ctx, owner, e.ID, core.EntryFields{Amount: &amount})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Amount.Cents != 4210 || got.Category != core.CategoryFood || got.Month != "January 2025" {
		t.Fatalf("partial update = %+v", got)
	}

	got, err = f.ledger.Update(ctx, owner, e.ID, core.EntryFields{Month: sp("feb 2025"), Category: sp("Other")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Month != "February 2025" || got.Category != core.CategoryOther || got.Amount.Cents != 4210 {
		t.Fatalf("second update = %+v", got)
	}

	same, err := f.ledger.Update(ctx, owner, e.ID, core.EntryFields{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same != got {
		t.Fatalf("empty update changed the entry: %+v != %+v", same, got)
	}
}

func TestLedgerUpdateErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice").User.ID
	bob := f.register(t, "bob").User.ID
	e := f.add(t, alice, "Food", "10", "January 2025")
	ctx := context.Background()

	amount := decimal.RequireFromString("1")
	_, err := f.ledger.Update(ctx, bob, e.ID, core.EntryFields{Amount: &amount})
	assertIs(t, err, core.ErrBudgetNotFound)
	_, err = f.ledger.Update(ctx, bob, e.ID, core.EntryFields{})
	assertIs(t, err, core.ErrBudgetNotFound)
	_, err = f.ledger.Update(ctx, alice, "missing", core.EntryFields{Amount: &amount})
	assertIs(t, err, core.ErrBudgetNotFound)

	_, err = f.ledger.Update(ctx, alice, e.ID, core.EntryFields{Category: sp("Bogus")})
	assertIs(t, err, core.ErrInvalidCategory)
	_, err = f.ledger.Update(ctx, alice, e.ID, core.EntryFields{Month: sp("13 2025")})
	assertIs(t, err, core.ErrInvalidMonth)

	list, _ := f.ledger.List(ctx, alice)
	if len(list) != 1 || list[0].Amount.Cents != 1000 {
		t.Fatalf("entry changed by rejected updates: %+v", list)
	}
}

func TestLedgerDelete(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice").User.ID
	bob := f.register(t, "bob").User.ID
	e := f.add(t, alice, "Food", "10", "January 2025")
	ctx := context.Background()

	assertIs(t, f.ledger.Delete(ctx, bob, e.ID), core.ErrBudgetNotFound)
	if err := f.ledger.Delete(ctx, alice, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertIs(t, f.ledger.Delete(ctx, alice, e.ID), core.ErrBudgetNotFound)
}

func TestLedgerPublishesEvents(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "alice").User.ID
	e := f.add(t, owner, "Food", "10", "January 2025")
	ctx := context.Background()
	amount := decimal.RequireFromString("20")
	if _, err := f.ledger.Update(ctx, owner, e.ID, core.EntryFields{Amount: &amount}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.ledger.Delete(ctx, owner, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []core.EventType{core.EventBudgetCreated, core.EventBudgetUpdated, core.EventBudgetDeleted}
	got := f.publisher.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if f.publisher.events[0].EntryID != e.ID || f.publisher.events[0].UserID != owner {
		t.Fatalf("event payload = %+v", f.publisher.events[0])
	}
}

func TestLedgerPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	owner := f.register(t, "alice").User.ID

	e := f.add(t, owner, "Food", "10", "January 2025")
	if list, _ := f.ledger.List(context.Background(), owner); len(list) != 1 || list[0].ID != e.ID {
		t.Fatalf("entry not stored: %+v", list)
	}
}

func TestLedgerWithoutPublisher(t *testing.T) {
	f := newFixture(t)
	ledger := NewLedgerService(f.store, Options{})
	owner := f.register(t, "alice").User.ID
	d := decimal.RequireFromString("1")
	if _, err := ledger.Add(context.Background(), owner, core.EntryFields{Category: sp("Food"), Amount: &d, Month: sp("May 2025")}); err != nil {
		t.Fatalf("Add without publisher: %v", err)
	}
}

func TestLedgerAddForDeletedOwner(t *testing.T) {
	f := newFixture(t)
	d := decimal.RequireFromString("1")
	_, err := f.ledger.Add(context.Background(), "ghost", core.EntryFields{Category: sp("Food"), Amount: &d, Month: sp("May 2025")})
	assertIs(t, err, core.ErrUserNotFound)
}
