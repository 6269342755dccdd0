package http

import (
	"net/http"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

const msgBudgetDeleted = "Budget deleted"

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	entries, err := s.ledger.List(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if entries == nil {
		entries = []core.BudgetEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	p, _ := principalFrom(r.Context())
	entry, err := s.ledger.Add(r.Context(), p.UserID, req.fields())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	p, _ := principalFrom(r.Context())
	entry, err := s.ledger.Update(r.Context(), p.UserID, r.PathValue("id"), req.fields())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.ledger.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeMessage(w, http.StatusOK, msgBudgetDeleted)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	order, err := core.ParseReportOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}

	p, _ := principalFrom(r.Context())
	rows, err := s.reports.Generate(r.Context(), p.UserID, order)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
