package services

import (
	"context"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/storage"
)

// LedgerService manages budget entries. Every call is scoped to ownerID;
// entries of other users behave as if they did not exist.
type LedgerService struct {
	base
	entries storage.LedgerStore
}

func NewLedgerService(entries storage.LedgerStore, opts Options) *LedgerService {
	return &LedgerService{
		base:    newBase(opts, log.ComponentLedger),
		entries: entries,
	}
}

func (s *LedgerService) List(ctx context.Context, ownerID string) ([]core.BudgetEntry, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	out, err := s.entries.ListEntries(sctx, ownerID)
	if err != nil {
		return nil, s.internal(ctx, log.OpList, err)
	}
	return out, nil
}

func (s *LedgerService) Add(ctx context.Context, ownerID string, in core.EntryFields) (core.BudgetEntry, error) {
	patch, err := in.ValidateNew()
	if err != nil {
		return core.BudgetEntry{}, err
	}

	now := s.now()
	e := core.BudgetEntry{
		ID:        s.newID(),
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	patch.Apply(&e)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.entries.CreateEntry(sctx, e); err != nil {
		if isNotFound(err) {
			// The owner was deleted while their token was still valid.
			return core.BudgetEntry{}, core.ErrUserNotFound
		}
		return core.BudgetEntry{}, s.internal(ctx, log.OpCreate, err)
	}

	s.logEntry(ctx, "Budget entry created", log.OpCreate, e)
	s.publish(ctx, core.NewLedgerEvent(core.EventBudgetCreated, ownerID, e.ID))
	return e, nil
}

// Update applies the supplied fields; omitted ones keep their value.
func (s *LedgerService) Update(ctx context.Context, ownerID, entryID string, in core.EntryFields) (core.BudgetEntry, error) {
	patch, err := in.Validate()
	if err != nil {
		return core.BudgetEntry{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if patch.Empty() {
		e, err := s.entries.GetEntry(sctx, ownerID, entryID)
		if isNotFound(err) {
			return core.BudgetEntry{}, core.ErrBudgetNotFound
		}
		if err != nil {
			return core.BudgetEntry{}, s.internal(ctx, log.OpUpdate, err)
		}
		return e, nil
	}

	e, err := s.entries.UpdateEntry(sctx, ownerID, entryID, patch, s.now())
	if isNotFound(err) {
		return core.BudgetEntry{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.BudgetEntry{}, s.internal(ctx, log.OpUpdate, err)
	}

	s.logEntry(ctx, "Budget entry updated", log.OpUpdate, e)
	s.publish(ctx, core.NewLedgerEvent(core.EventBudgetUpdated, ownerID, e.ID))
	return e, nil
}

func (s *LedgerService) Delete(ctx context.Context, ownerID, entryID string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.entries.DeleteEntry(sctx, ownerID, entryID); err != nil {
		if isNotFound(err) {
			return core.ErrBudgetNotFound
		}
		return s.internal(ctx, log.OpDelete, err)
	}

	s.logger.InfoContext(ctx, "Budget entry deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, ownerID,
		log.FieldEntryID, entryID)
	s.publish(ctx, core.NewLedgerEvent(core.EventBudgetDeleted, ownerID, entryID))
	return nil
}

func (s *LedgerService) logEntry(ctx context.Context, msg, op string, e core.BudgetEntry) {
	fields := log.NewFields().
		WithOperation(op).
		WithUser(e.UserID).
		WithEntry(e.ID, string(e.Category), e.Amount.Cents, e.Month)
	s.logger.InfoContext(ctx, msg, fields.ToSlice()...)
}
