package http

import (
	"errors"
	"net/http"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

type paymentDTO struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Amount      string      `json:"amount"`
	DueDate     string      `json:"due_date"`
	IsPaid      bool        `json:"is_paid"`
	IsRecurring bool        `json:"is_recurring"`
	IsOverdue   bool        `json:"is_overdue"`
	CategoryID  string      `json:"category_id,omitempty"`
	Category    categoryDTO `json:"category"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type paymentRequest struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	IsPaid      bool   `json:"is_paid"`
	IsRecurring bool   `json:"is_recurring"`
	CategoryID  string `json:"category_id"`
}

func toPaymentDTO(p core.Payment, today core.Date) paymentDTO {
	return paymentDTO{
		ID:          p.ID,
		Title:       p.Title,
		Amount:      core.FormatAmount(p.Amount),
		DueDate:     p.DueDate.String(),
		IsPaid:      p.IsPaid,
		IsRecurring: p.IsRecurring,
		IsOverdue:   p.IsOverdue(today),
		CategoryID:  p.CategoryID,
		Category:    toCategoryDTO(p.DisplayCategory()),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (req paymentRequest) toDomain(ownerID string) (core.Payment, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Payment{}, err
	}
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return core.Payment{}, err
	}
	p := core.Payment{
		OwnerID:     ownerID,
		Title:       sanitizeInput(req.Title),
		Amount:      amount,
		DueDate:     due,
		IsPaid:      req.IsPaid,
		IsRecurring: req.IsRecurring,
		CategoryID:  req.CategoryID,
	}
	return p, p.Validate()
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}

	payments := set.Payments.Snapshot()
	today := core.DateOf(time.Now())
	dtos := make([]paymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p, today)
	}
	writeJSON(w, http.StatusOK, listDTO[paymentDTO]{Items: dtos, Banner: set.Payments.LastError()})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toDomain(ownerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Payments.Insert(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(confirmed, core.DateOf(time.Now())))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toDomain(ownerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	confirmed, err := set.Payments.Update(r.Context(), r.PathValue("id"), p)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(confirmed, core.DateOf(time.Now())))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	err := set.Payments.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type calendarDayDTO struct {
	Date     string       `json:"date"`
	InMonth  bool         `json:"in_month"`
	Overdue  bool         `json:"overdue"`
	Payments []paymentDTO `json:"payments"`
}

type calendarDTO struct {
	Year  int              `json:"year"`
	Month int              `json:"month"`
	Weeks [][7]calendarDayDTO `json:"weeks"`
}

// handleCalendar returns the month grid with payments bucketed by due date.
// Overdue flags are computed against the request's "today", never cached.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, ownerID string) {
	year, month := parseYearMonth(r)

	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	payments := set.Payments.Snapshot()

	today := core.DateOf(time.Now())
	grid := analytics.BuildGrid(year, time.Month(month), time.Sunday)
	grid = analytics.BucketPayments(grid, payments, today)

	weeks := make([][7]calendarDayDTO, len(grid.Weeks))
	for wi, week := range grid.Weeks {
		for di, day := range week {
			dtos := make([]paymentDTO, len(day.Payments))
			for pi, p := range day.Payments {
				dtos[pi] = toPaymentDTO(p, today)
			}
			weeks[wi][di] = calendarDayDTO{
				Date:     day.Date.String(),
				InMonth:  day.InMonth,
				Overdue:  len(day.Overdue) > 0,
				Payments: dtos,
			}
		}
	}

	writeJSON(w, http.StatusOK, calendarDTO{Year: year, Month: month, Weeks: weeks})
}
