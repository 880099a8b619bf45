package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

type ExpenseHandler struct {
	service services.ExpenseService
}

func NewExpenseHandler(service services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// GetExpenses serves one filtered, sorted page of the caller's expenses.
func (h *ExpenseHandler) GetExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	filter, params, err := query.ParseValues(r.URL.Query())
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	expenses, err := h.service.ListExpenses(r.Context(), userID, filter, params)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.ExpenseList{Expenses: expenses})
}

func (h *ExpenseHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.AddExpenseRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid JSON for AddExpense")
		return
	}

	expense, err := h.service.AddExpense(r.Context(), userID, &req)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.DeleteExpenseRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid JSON for DeleteExpense")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), userID, req.ID); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "expense record deleted"})
}
