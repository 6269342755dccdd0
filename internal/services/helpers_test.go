package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"budgetly/internal/auth"
	"budgetly/internal/core"
	"budgetly/internal/storage/memory"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-test-secret-test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	store     *memory.Store
	accounts  *AccountService
	ledger    *LedgerService
	reports   *ReportService
	publisher *recordingPublisher
	tokens    *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokens(testSecret)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	var seq int
	var mu sync.Mutex
	opts := Options{
		Publisher: &recordingPublisher{},
		Now:       func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
	store := memory.New()
	return &fixture{
		store:     store,
		accounts:  NewAccountService(store, auth.Hasher{Cost: bcrypt.MinCost}, tokens, opts),
		ledger:    NewLedgerService(store, opts),
		reports:   NewReportService(store, opts),
		publisher: opts.Publisher.(*recordingPublisher),
		tokens:    tokens,
	}
}

func (f *fixture) register(t *testing.T, username string) AuthResult {
	t.Helper()
	res, err := f.accounts.Register(context.Background(), RegisterInput{Username: username, Password: "secret123"})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return res
}

func (f *fixture) add(t *testing.T, owner, category, amount, month string) core.BudgetEntry {
	t.Helper()
	d := decimal.RequireFromString(amount)
	e, err := f.ledger.Add(context.Background(), owner, core.EntryFields{Category: &category, Amount: &d, Month: &month})
	if err != nil {
		t.Fatalf("Add(%s, %s, %s): %v", category, amount, month, err)
	}
	return e
}

func assertKind(t *testing.T, err error, want core.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := core.KindOf(err); got != want {
		t.Fatalf("error kind = %v (%v), want %v", got, err, want)
	}
}

func assertIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got %v, want %v", err, target)
	}
}

func sp(s string) *string { return &s }
