// Package sqlite implements storage.Store on an embedded SQLite database
// through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/storage"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

const entryColumns = "id, user_id, category, amount_cents, month, period, created_at, updated_at"

const userColumns = "id, username, email, password_hash, google_id, role, created_at, updated_at"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Repository struct {
	db *sql.DB
}

var _ storage.Store = (*Repository)(nil)

// NewRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + dsnPragmas

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, nullable(u.Email), nullable(u.PasswordHash), nullable(u.GoogleID),
		u.Role, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (core.User, error) {
	if googleID == "" {
		return core.User{}, storage.ErrNotFound
	}
	return r.getUser(ctx, "google_id = ?", googleID)
}

func (r *Repository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = ? OR (? <> '' AND email = ?))`,
		username, email, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_entries WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repository) ListEntries(ctx context.Context, userID string) ([]core.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM budget_entries WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) GetEntry(ctx context.Context, userID, id string) (core.BudgetEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM budget_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	return e, err
}

func (r *Repository) CreateEntry(ctx context.Context, e core.BudgetEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Category), e.Amount.Cents, e.Month, e.Period,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert entry: %w", mapError(err))
	}
	return nil
}

// UpdateEntry applies p in a single statement; fields left nil keep their
// stored value.
func (r *Repository) UpdateEntry(ctx context.Context, userID, id string, p core.EntryPatch, at time.Time) (core.BudgetEntry, error) {
	category, amount, month, period := patchArgs(p)
	row := r.db.QueryRowContext(ctx, `
		UPDATE budget_entries SET
			category     = COALESCE(?, category),
			amount_cents = COALESCE(?, amount_cents),
			month        = COALESCE(?, month),
			period       = COALESCE(?, period),
			updated_at   = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+entryColumns,
		category, amount, month, period, formatTime(at), id, userID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	return e, err
}

func (r *Repository) DeleteEntry(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) AggregateEntries(ctx context.Context, userID string) ([]core.ReportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, category, period, SUM(amount_cents)
		FROM budget_entries
		WHERE user_id = ?
		GROUP BY period, month, category`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}
	defer rows.Close()

	out := []core.ReportRow{}
	for rows.Next() {
		var (
			row      core.ReportRow
			category string
		)
		if err := rows.Scan(&row.Month, &category, &row.Period, &row.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		row.Category = core.Category(category)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u                     core.User
		email, hash, googleID sql.NullString
		createdAt, updatedAt  string
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &email, &hash, &googleID, &u.Role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Email, u.PasswordHash, u.GoogleID = email.String, hash.String, googleID.String
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.User{}, err
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (core.BudgetEntry, error) {
	var (
		e                    core.BudgetEntry
		category             string
		createdAt, updatedAt string
	)
	if err := s.Scan(&e.ID, &e.UserID, &category, &e.Amount.Cents, &e.Month, &e.Period, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BudgetEntry{}, err
		}
		return core.BudgetEntry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Category = core.Category(category)

	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.BudgetEntry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.BudgetEntry{}, err
	}
	return e, nil
}

// patchArgs turns nil patch fields into SQL NULLs for COALESCE.
func patchArgs(p core.EntryPatch) (category, amount, month, period any) {
	if p.Category != nil {
		category = string(*p.Category)
	}
	if p.Amount != nil {
		amount = p.Amount.Cents
	}
	if p.Month != nil {
		month = p.Month.String()
		period = p.Month.Period()
	}
	return category, amount, month, period
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return storage.ErrConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return storage.ErrNotFound
		}
	}
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
