package services

import (
	"context"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/storage"
)

// ReportService aggregates a user's entries into month by category totals.
type ReportService struct {
	base
	entries storage.LedgerStore
}

func NewReportService(entries storage.LedgerStore, opts Options) *ReportService {
	return &ReportService{
		base:    newBase(opts, log.ComponentReport),
		entries: entries,
	}
}

// Generate returns one row per non-empty (month, category) group, sorted by
// order. An empty ledger yields an empty, non-nil slice.
func (s *ReportService) Generate(ctx context.Context, ownerID string, order core.ReportOrder) ([]core.ReportRow, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rows, err := s.entries.AggregateEntries(sctx, ownerID)
	if err != nil {
		return nil, s.internal(ctx, log.OpReport, err)
	}
	if rows == nil {
		rows = []core.ReportRow{}
	}
	core.SortReport(rows, order)

	s.logger.DebugContext(ctx, "Report generated",
		log.FieldUserID, ownerID,
		log.FieldRows, len(rows))
	return rows, nil
}
