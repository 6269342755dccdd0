package services

import (
	"context"
	"errors"
	"time"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/storage"
)

const DefaultStoreTimeout = 5 * time.Second

// EventPublisher delivers ledger events. A nil publisher disables events.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(u core.User) (string, error)
	Verify(token string) (core.Principal, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Options are shared by every service; zero values pick defaults.
type Options struct {
	StoreTimeout time.Duration
	Publisher    EventPublisher
	Logger       *log.Logger
	Now          func() time.Time
	NewID        func() string
}

type base struct {
	timeout   time.Duration
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

func newBase(o Options, component string) base {
	b := base{
		timeout:   o.StoreTimeout,
		publisher: o.Publisher,
		logger:    o.Logger,
		now:       o.Now,
		newID:     o.NewID,
	}
	if b.timeout <= 0 {
		b.timeout = DefaultStoreTimeout
	}
	if b.logger == nil {
		b.logger = log.Discard()
	}
	b.logger = b.logger.WithComponent(component)
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	if b.newID == nil {
		b.newID = newUUID
	}
	return b
}

// storeCtx bounds a single store call.
func (b base) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// publish sends ev if a publisher is configured. Failures are logged only;
// the mutation has already committed.
func (b base) publish(ctx context.Context, ev core.LedgerEvent) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, string(ev.Type),
			log.FieldUserID, ev.UserID,
			log.FieldEntryID, ev.EntryID,
			log.FieldError, err)
	}
}

// internal logs err and hides it behind a server error.
func (b base) internal(ctx context.Context, op string, err error) error {
	log.NewStructuredLogger(b.logger).LogError(ctx, "Store operation failed", err, b.logger.Component(), op, nil)
	return core.Internal(err)
}

func isNotFound(err error) bool { return errors.Is(err, storage.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, storage.ErrConflict) }
