// Package memory is an in-process Store used by tests and by
// DATA_BACKEND=memory for local development. Nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	users   map[string]core.User
	entries []core.BudgetEntry
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]core.User{}}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.ID == u.ID || existing.Username == u.Username ||
			(u.Email != "" && strings.EqualFold(existing.Email, u.Email)) ||
			(u.GoogleID != "" && existing.GoogleID == u.GoogleID) {
			return storage.ErrConflict
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	return s.findUser(func(u core.User) bool { return u.Username == username })
}

func (s *Store) GetUserByGoogleID(_ context.Context, googleID string) (core.User, error) {
	if googleID == "" {
		return core.User{}, storage.ErrNotFound
	}
	return s.findUser(func(u core.User) bool { return u.GoogleID == googleID })
}

func (s *Store) UserExists(_ context.Context, username, email string) (bool, error) {
	_, err := s.findUser(func(u core.User) bool {
		return u.Username == username || (email != "" && strings.EqualFold(u.Email, email))
	})
	if err == storage.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.UserID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	delete(s.users, id)
	return nil
}

func (s *Store) ListEntries(_ context.Context, userID string) ([]core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.BudgetEntry{}
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, userID, id string) (core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	return s.entries[i], nil
}

func (s *Store) CreateEntry(_ context.Context, e core.BudgetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.UserID]; !ok {
		return storage.ErrNotFound
	}
	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return storage.ErrConflict
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, userID, id string, p core.EntryPatch, at time.Time) (core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.BudgetEntry{}, storage.ErrNotFound
	}
	p.Apply(&s.entries[i])
	s.entries[i].UpdatedAt = at
	return s.entries[i], nil
}

func (s *Store) DeleteEntry(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

func (s *Store) AggregateEntries(_ context.Context, userID string) ([]core.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct {
		month    string
		category core.Category
	}
	idx := map[key]int{}
	out := []core.ReportRow{}
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		k := key{e.Month, e.Category}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, core.ReportRow{Month: e.Month, Category: e.Category, Period: e.Period})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out, nil
}

func (s *Store) indexOf(userID, id string) int {
	for i, e := range s.entries {
		if e.ID == id && e.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) findUser(match func(core.User) bool) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}
