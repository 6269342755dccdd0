// Package postgres implements storage.Store on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = "id, user_id, category, amount_cents, month, period, created_at, updated_at"

const userColumns = "id, username, COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(google_id, ''), role, created_at, updated_at"

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Repository)(nil)

// NewRepository connects to databaseURL and applies migrations.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, google_id, role, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.GoogleID, u.Role, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, "username = $1", username)
}

func (r *Repository) GetUserByGoogleID(ctx context.Context, googleID string) (core.User, error) {
	if googleID == "" {
		return core.User{}, storage.ErrNotFound
	}
	return r.getUser(ctx, "google_id = $1", googleID)
}

func (r *Repository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR ($2 <> '' AND lower(email) = lower($2)))`,
		username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM budget_entries WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete user entries: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) ListEntries(ctx context.Context, userID string) ([]core.BudgetEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM budget_entries WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.BudgetEntry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if out == nil {
		out = []core.BudgetEntry{}
	}
	return out, nil
}

func (r *Repository) GetEntry(ctx context.Context, userID, id string) (core.BudgetEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM budget_entries WHERE id = $1 AND user_id = $2`, id, userID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *Repository) CreateEntry(ctx context.Context, e core.BudgetEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO budget_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, string(e.Category), e.Amount.Cents, e.Month, e.Period,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert entry: %w", mapError(err))
	}
	return nil
}

func (r *Repository) UpdateEntry(ctx context.Context, userID, id string, p core.EntryPatch, at time.Time) (core.BudgetEntry, error) {
	var (
		category, month *string
		amount          *int64
		period          *int
	)
	if p.Category != nil {
		c := string(*p.Category)
		category = &c
	}
	if p.Amount != nil {
		amount = &p.Amount.Cents
	}
	if p.Month != nil {
		m, pd := p.Month.String(), p.Month.Period()
		month, period = &m, &pd
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE budget_entries SET
			category     = COALESCE($1, category),
			amount_cents = COALESCE($2, amount_cents),
			month        = COALESCE($3, month),
			period       = COALESCE($4, period),
			updated_at   = $5
		WHERE id = $6 AND user_id = $7
		RETURNING `+entryColumns,
		category, amount, month, period, at.UTC(), id, userID)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return core.BudgetEntry{}, fmt.Errorf("update entry: %w", err)
	}
	return e, nil
}

func (r *Repository) DeleteEntry(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budget_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) AggregateEntries(ctx context.Context, userID string) ([]core.ReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT month, category, period, SUM(amount_cents)::BIGINT
		FROM budget_entries
		WHERE user_id = $1
		GROUP BY period, month, category`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ReportRow, error) {
		var (
			rr       core.ReportRow
			category string
		)
		err := row.Scan(&rr.Month, &category, &rr.Period, &rr.Total.Cents)
		rr.Category = core.Category(category)
		return rr, err
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}
	if out == nil {
		out = []core.ReportRow{}
	}
	return out, nil
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanEntry(row pgx.Row) (core.BudgetEntry, error) {
	var (
		e        core.BudgetEntry
		category string
	)
	err := row.Scan(&e.ID, &e.UserID, &category, &e.Amount.Cents, &e.Month, &e.Period, &e.CreatedAt, &e.UpdatedAt)
	e.Category = core.Category(category)
	return e, err
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return storage.ErrConflict
		case codeForeignKeyViolation:
			return storage.ErrNotFound
		}
	}
	return err
}
