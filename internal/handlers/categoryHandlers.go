package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"spendwise/internal/models"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

type CategoryHandler struct {
	service services.CategoryService
}

func NewCategoryHandler(service services.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.CategoryRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid JSON for AddCategory")
		return
	}

	category, err := h.service.AddCategory(r.Context(), userID, req.Name)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	categories, err := h.service.GetCategories(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, models.CategoryList{Categories: categories})
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.CategoryRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid JSON for DeleteCategory")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), userID, req.Name); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "category deleted"})
}
