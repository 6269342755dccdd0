// Package worker holds the background consumers of ledger events.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

const DefaultStatsInterval = 5 * time.Minute

// AuditWorker writes every ledger event to the structured log and keeps
// per-type counters that are reported on an interval.
type AuditWorker struct {
	logger *log.Logger

	mu       sync.Mutex
	counts   map[core.EventType]int64
	users    map[string]struct{}
	lastSeen time.Time
}

// Stats is a snapshot of what the worker has seen since startup.
type Stats struct {
	Total    int64
	ByType   map[core.EventType]int64
	Users    int
	LastSeen time.Time
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{
		logger: logger.WithComponent(log.ComponentAudit),
		counts: make(map[core.EventType]int64),
		users:  make(map[string]struct{}),
	}
}

var errUnknownEvent = errors.New("unknown ledger event type")

// HandleLedgerEvent records one event. Unknown types are rejected so the
// consumer requeues and then drops them.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	switch ev.Type {
	case core.EventBudgetCreated, core.EventBudgetUpdated, core.EventBudgetDeleted, core.EventAccountDeleted:
	default:
		w.logger.WarnContext(ctx, "Ignoring ledger event",
			log.FieldEventType, string(ev.Type),
			log.FieldUserID, ev.UserID)
		return errUnknownEvent
	}

	w.mu.Lock()
	w.counts[ev.Type]++
	if ev.Type == core.EventAccountDeleted {
		delete(w.users, ev.UserID)
	} else {
		w.users[ev.UserID] = struct{}{}
	}
	w.lastSeen = ev.OccurredAt
	w.mu.Unlock()

	args := []any{
		log.FieldEventType, string(ev.Type),
		log.FieldUserID, ev.UserID,
		"occurred_at", ev.OccurredAt.Format(time.RFC3339),
	}
	if ev.EntryID != "" {
		args = append(args, log.FieldEntryID, ev.EntryID)
	}
	w.logger.InfoContext(ctx, "Ledger event", args...)
	return nil
}

func (w *AuditWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Stats{
		ByType:   make(map[core.EventType]int64, len(w.counts)),
		Users:    len(w.users),
		LastSeen: w.lastSeen,
	}
	for t, n := range w.counts {
		s.ByType[t] = n
		s.Total += n
	}
	return s
}

// ReportStats logs a stats snapshot every interval until ctx is done.
func (w *AuditWorker) ReportStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logStats(context.WithoutCancel(ctx), "Final ledger event stats")
			return
		case <-ticker.C:
			w.logStats(ctx, "Ledger event stats")
		}
	}
}

func (w *AuditWorker) logStats(ctx context.Context, msg string) {
	s := w.Stats()
	args := []any{"total", s.Total, "active_users", s.Users}
	for t, n := range s.ByType {
		args = append(args, string(t), n)
	}
	w.logger.InfoContext(ctx, msg, args...)
}
