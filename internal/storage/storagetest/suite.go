// Package storagetest holds behaviour tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/storage"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) storage.Store

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"UserRoundTrip", testUserRoundTrip},
		{"UserConflicts", testUserConflicts},
		{"UserExists", testUserExists},
		{"UpdatePasswordHash", testUpdatePasswordHash},
		{"EntriesScopedToOwner", testEntriesScopedToOwner},
		{"UpdateEntryPartial", testUpdateEntryPartial},
		{"UpdateEntryWrongOwner", testUpdateEntryWrongOwner},
		{"DeleteEntry", testDeleteEntry},
		{"CreateEntryUnknownUser", testCreateEntryUnknownUser},
		{"Aggregate", testAggregate},
		{"DeleteUserCascades", testDeleteUserCascades},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tc.fn(t, s)
		})
	}
}

func newUser(id, username, email string) core.User {
	return core.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash-" + id,
		Role:         core.RoleUser,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
}

func newEntry(id, userID string, cat core.Category, cents int64, month core.MonthLabel, at time.Time) core.BudgetEntry {
	return core.BudgetEntry{
		ID:        id,
		UserID:    userID,
		Category:  cat,
		Amount:    core.Money{Cents: cents},
		Month:     month.String(),
		Period:    month.Period(),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func mustCreateUser(t *testing.T, s storage.Store, u core.User) {
	t.Helper()
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", u.Username, err)
	}
}

func mustCreateEntry(t *testing.T, s storage.Store, e core.BudgetEntry) {
	t.Helper()
	if err := s.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("CreateEntry(%s): %v", e.ID, err)
	}
}

var (
	jan = core.MonthLabel{Year: 2025, Month: time.January}
	feb = core.MonthLabel{Year: 2025, Month: time.February}
)

func testUserRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := newUser("u1", "alice", "alice@example.com")
	u.GoogleID = "g-1"
	mustCreateUser(t, s, u)

	byID, err := s.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Username != "alice" || byID.Email != "alice@example.com" || byID.PasswordHash != "hash-u1" || byID.Role != core.RoleUser {
		t.Fatalf("unexpected user %+v", byID)
	}
	if !byID.CreatedAt.Equal(t0) {
		t.Fatalf("created_at = %v, want %v", byID.CreatedAt, t0)
	}

	if got, err := s.GetUserByUsername(ctx, "alice"); err != nil || got.ID != "u1" {
		t.Fatalf("GetUserByUsername = %+v, %v", got, err)
	}
	if got, err := s.GetUserByGoogleID(ctx, "g-1"); err != nil || got.ID != "u1" {
		t.Fatalf("GetUserByGoogleID = %+v, %v", got, err)
	}
	if _, err := s.GetUserByUsername(ctx, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing username: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByGoogleID(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("empty google id: got %v, want ErrNotFound", err)
	}
}

func testUserConflicts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("u1", "alice", "alice@example.com"))

	cases := []core.User{
		newUser("u2", "alice", "other@example.com"),
		newUser("u3", "alicia", "ALICE@example.com"),
	}
	for _, u := range cases {
		if err := s.CreateUser(ctx, u); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("CreateUser(%s/%s): got %v, want ErrConflict", u.Username, u.Email, err)
		}
	}

	// Users without email never collide on it.
	mustCreateUser(t, s, newUser("u4", "carol", ""))
	mustCreateUser(t, s, newUser("u5", "dave", ""))
}

func testUserExists(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("u1", "alice", "alice@example.com"))

	cases := []struct {
		username, email string
		want            bool
	}{
		{"alice", "", true},
		{"bob", "alice@example.com", true},
		{"bob", "Alice@Example.com", true},
		{"bob", "", false},
		{"bob", "bob@example.com", false},
	}
	for _, tc := range cases {
		got, err := s.UserExists(ctx, tc.username, tc.email)
		if err != nil {
			t.Fatalf("UserExists(%q, %q): %v", tc.username, tc.email, err)
		}
		if got != tc.want {
			t.Fatalf("UserExists(%q, %q) = %v, want %v", tc.username, tc.email, got, tc.want)
		}
	}
}

func testUpdatePasswordHash(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("u1", "alice", ""))

	later := t0.Add(time.Hour)
	if err := s.UpdatePasswordHash(ctx, "u1", "new-hash", later); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	u, err := s.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.PasswordHash != "new-hash" || !u.UpdatedAt.Equal(later) {
		t.Fatalf("got hash=%q updated=%v", u.PasswordHash, u.UpdatedAt)
	}
	if err := s.UpdatePasswordHash(ctx, "nope", "x", later); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}
}

func testEntriesScopedToOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", ""))
	mustCreateUser(t, s, newUser("b", "bob", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1250, jan, t0))
	mustCreateEntry(t, s, newEntry("e2", "a", core.CategoryRent, 90000, jan, t0.Add(time.Second)))
	mustCreateEntry(t, s, newEntry("e3", "b", core.CategoryFood, 500, jan, t0))

	got, err := s.ListEntries(ctx, "a")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("ListEntries(a) = %+v", got)
	}
	if got[0].Amount.Cents != 1250 || got[0].Month != "January 2025" || got[0].Period != 202501 {
		t.Fatalf("entry not stored faithfully: %+v", got[0])
	}

	empty, err := s.ListEntries(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListEntries(nobody): %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("ListEntries(nobody) = %#v, want empty non-nil slice", empty)
	}
}

func testUpdateEntryPartial(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1250, jan, t0))

	amount := core.Money{Cents: 4000}
	later := t0.Add(time.Minute)
	got, err := s.UpdateEntry(ctx, "a", "e1", core.EntryPatch{Amount: &amount}, later)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if got.Amount.Cents != 4000 || got.Category != core.CategoryFood || got.Month != "January 2025" {
		t.Fatalf("partial update changed other fields: %+v", got)
	}
	if !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(t0) {
		t.Fatalf("timestamps: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}

	cat := core.CategoryOther
	got, err = s.UpdateEntry(ctx, "a", "e1", core.EntryPatch{Category: &cat, Month: &feb}, later)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if got.Category != core.CategoryOther || got.Month != "February 2025" || got.Period != 202502 || got.Amount.Cents != 4000 {
		t.Fatalf("second update: %+v", got)
	}
}

func testUpdateEntryWrongOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", ""))
	mustCreateUser(t, s, newUser("b", "bob", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1250, jan, t0))

	amount := core.Money{Cents: 1}
	if _, err := s.UpdateEntry(ctx, "b", "e1", core.EntryPatch{Amount: &amount}, t0); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign update: got %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateEntry(ctx, "a", "missing", core.EntryPatch{Amount: &amount}, t0); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing update: got %v, want ErrNotFound", err)
	}

	list, _ := s.ListEntries(ctx, "a")
	if len(list) != 1 || list[0].Amount.Cents != 1250 {
		t.Fatalf("entry modified by foreign update: %+v", list)
	}
}

func testDeleteEntry(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", ""))
	mustCreateUser(t, s, newUser("b", "bob", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1250, jan, t0))

	if _, err := s.GetEntry(ctx, "b", "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign get: got %v, want ErrNotFound", err)
	}
	if got, err := s.GetEntry(ctx, "a", "e1"); err != nil || got.Amount.Cents != 1250 {
		t.Fatalf("GetEntry = %+v, %v", got, err)
	}
	if err := s.DeleteEntry(ctx, "b", "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteEntry(ctx, "a", "e1"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := s.GetEntry(ctx, "a", "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteEntry(ctx, "a", "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func testCreateEntryUnknownUser(t *testing.T, s storage.Store) {
	err := s.CreateEntry(context.Background(), newEntry("e1", "ghost", core.CategoryFood, 100, jan, t0))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func testAggregate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", ""))
	mustCreateUser(t, s, newUser("b", "bob", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1000, jan, t0))
	mustCreateEntry(t, s, newEntry("e2", "a", core.CategoryFood, 550, jan, t0))
	mustCreateEntry(t, s, newEntry("e3", "a", core.CategoryRent, 90000, jan, t0))
	mustCreateEntry(t, s, newEntry("e4", "a", core.CategoryFood, 200, feb, t0))
	mustCreateEntry(t, s, newEntry("e5", "b", core.CategoryFood, 999, jan, t0))

	rows, err := s.AggregateEntries(ctx, "a")
	if err != nil {
		t.Fatalf("AggregateEntries: %v", err)
	}
	got := map[string]int64{}
	for _, r := range rows {
		got[fmt.Sprintf("%s|%s|%d", r.Month, r.Category, r.Period)] = r.Total.Cents
	}
	want := map[string]int64{
		"January 2025|Food|202501":  1550,
		"January 2025|Rent|202501":  90000,
		"February 2025|Food|202502": 200,
	}
	if len(got) != len(want) || len(rows) != len(want) {
		t.Fatalf("AggregateEntries = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("total[%s] = %d, want %d", k, got[k], v)
		}
	}

	empty, err := s.AggregateEntries(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Fatalf("AggregateEntries(nobody) = %v, %v", empty, err)
	}
}

func testDeleteUserCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, newUser("a", "alice", "alice@example.com"))
	mustCreateUser(t, s, newUser("b", "bob", ""))
	mustCreateEntry(t, s, newEntry("e1", "a", core.CategoryFood, 1000, jan, t0))
	mustCreateEntry(t, s, newEntry("e2", "b", core.CategoryFood, 1000, jan, t0))

	if err := s.DeleteUser(ctx, "a"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUserByID(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	if list, _ := s.ListEntries(ctx, "a"); len(list) != 0 {
		t.Fatalf("entries survived account deletion: %+v", list)
	}
	if list, _ := s.ListEntries(ctx, "b"); len(list) != 1 {
		t.Fatalf("other user's entries touched: %+v", list)
	}
	if err := s.DeleteUser(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}

	// Username and email are free again.
	mustCreateUser(t, s, newUser("a2", "alice", "alice@example.com"))
}
