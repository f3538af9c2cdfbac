package http

import (
	"net/http"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

type settingsDTO struct {
	MonthlyBudget string `json:"monthly_budget"`
	Currency      string `json:"currency"`
}

type settingsRequest struct {
	MonthlyBudget string `json:"monthly_budget"`
	Currency      string `json:"currency"`
}

func toSettingsDTO(s core.Settings) settingsDTO {
	return settingsDTO{
		MonthlyBudget: core.FormatAmount(s.MonthlyBudget),
		Currency:      s.Currency,
	}
}

// handleGetSettings lazily creates the settings row on first access.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, ownerID string) {
	settings, err := s.store.GetSettings(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req settingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	budget, err := core.ParseAmount(req.MonthlyBudget)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid monthly budget")
		return
	}
	settings := core.Settings{
		OwnerID:       ownerID,
		MonthlyBudget: budget,
		Currency:      sanitizeInput(req.Currency),
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	confirmed, err := s.store.PutSettings(r.Context(), settings)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(confirmed))
}

type categoryShareDTO struct {
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Amount  string  `json:"amount"`
	Percent float64 `json:"percent"`
}

type dashboardDTO struct {
	MonthTotal      string             `json:"month_total"`
	BudgetRemaining string             `json:"budget_remaining"`
	MonthOverMonth  float64            `json:"month_over_month_percent"`
	Currency        string             `json:"currency"`
	TopCategories   []categoryShareDTO `json:"top_categories"`
}

// handleDashboard derives the month overview from the live collections. All
// aggregation is pure; this handler just fetches and formats.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, ownerID string) {
	set, ok := s.collections(w, r, ownerID)
	if !ok {
		return
	}
	expenses := set.Expenses.Snapshot()
	settings, err := s.store.GetSettings(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load settings")
		return
	}

	overview := analytics.BuildOverview(expenses, settings, time.Now())
	top := make([]categoryShareDTO, len(overview.Top))
	for i, share := range overview.Top {
		top[i] = categoryShareDTO{
			Name:    share.Name,
			Color:   share.Color,
			Amount:  core.FormatAmount(share.Amount),
			Percent: share.Percent,
		}
	}

	writeJSON(w, http.StatusOK, dashboardDTO{
		MonthTotal:      core.FormatAmount(overview.Total),
		BudgetRemaining: core.FormatAmount(overview.BudgetRemaining),
		MonthOverMonth:  overview.Delta.Percent,
		Currency:        settings.Currency,
		TopCategories:   top,
	})
}

type tipDTO struct {
	Tip string `json:"tip"`
}

// handleTip serves spending advice. The advisor never fails: any model error
// already degraded to the fallback text.
func (s *Server) handleTip(w http.ResponseWriter, r *http.Request, ownerID string) {
	var expenses []core.Expense
	if set, err := s.hub.For(r.Context(), ownerID); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Tip expense load failed",
			applog.FieldOwnerID, ownerID, applog.FieldError, err)
	} else {
		expenses = set.Expenses.Snapshot()
	}
	writeJSON(w, http.StatusOK, tipDTO{Tip: s.advisor.Tip(r.Context(), ownerID, expenses)})
}

type themeDTO struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themeDTO{Theme: s.themes.Load()})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeDTO
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.themes.Save(req.Theme); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, themeDTO{Theme: req.Theme})
}
