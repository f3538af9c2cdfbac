package http

import (
	"errors"
	"net/http"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/export"
	applog "bilancio/internal/log"
	"bilancio/internal/store"
)

type expenseDTO struct {
	ID          string      `json:"id"`
	Amount      string      `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	CategoryID  string      `json:"category_id,omitempty"`
	Category    categoryDTO `json:"category"`
	CreatedAt   time.Time   `json:"created_at"`
}

type expenseRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CategoryID  string `json:"category_id"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
		Amount:      core.FormatAmount(e.Amount),
		Description: e.Description,
		Date:        e.Date.String(),
		CategoryID:  e.CategoryID,
		Category:    toCategoryDTO(e.DisplayCategory()),
		CreatedAt:   e.CreatedAt,
	}
}

func (req expenseRequest) toDomain(ownerID string) (core.Expense, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		OwnerID:     ownerID,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
		CategoryID:  req.CategoryID,
	}
	return e, e.Validate()
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}

	expenses := set.Expenses.Snapshot()
	dtos := make([]expenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, listDTO[expenseDTO]{Items: dtos, Banner: set.Expenses.LastError()})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := req.toDomain(ownerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Expenses.Insert(r.Context(), e)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(confirmed))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := req.toDomain(ownerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Expenses.Update(r.Context(), r.PathValue("id"), e)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(confirmed))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	err := set.Expenses.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	expenses := set.Expenses.Snapshot()

	name := export.Filename("expenses", core.DateOf(time.Now()))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.ExpensesCSV(w, expenses); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			applog.FieldOwnerID, ownerID, applog.FieldError, err)
	}
}
