package storage

import (
	"context"
	"errors"
	"time"

	"budgetly/internal/core"
)

var (
	// ErrNotFound is returned when no row matches, including rows that exist
	// but belong to another user.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a unique column already holds the value.
	ErrConflict = errors.New("storage: unique constraint violated")
)

// Ports for the persistence adapters.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByID(ctx context.Context, id string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		GetUserByGoogleID(ctx context.Context, googleID string) (core.User, error)
		// UserExists reports whether username, or email when non-empty, is taken.
		UserExists(ctx context.Context, username, email string) (bool, error)
		UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
		// DeleteUser removes the user's entries and then the user atomically.
		DeleteUser(ctx context.Context, id string) error
	}

	// LedgerStore scopes every call to the owning user.
	LedgerStore interface {
		ListEntries(ctx context.Context, userID string) ([]core.BudgetEntry, error)
		GetEntry(ctx context.Context, userID, id string) (core.BudgetEntry, error)
		CreateEntry(ctx context.Context, e core.BudgetEntry) error
		UpdateEntry(ctx context.Context, userID, id string, p core.EntryPatch, at time.Time) (core.BudgetEntry, error)
		DeleteEntry(ctx context.Context, userID, id string) error
		// AggregateEntries sums amounts grouped by month and category.
		// Rows come back unordered.
		AggregateEntries(ctx context.Context, userID string) ([]core.ReportRow, error)
	}

	Store interface {
		UserStore
		LedgerStore
		Ping(ctx context.Context) error
		Close() error
	}
)
