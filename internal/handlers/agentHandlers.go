package handlers

import (
	"net/http"

	"spendwise/internal/models"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

type AgentHandler struct {
	agentService *services.AgentService
}

func NewAgentHandler(agentService *services.AgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

func (a *AgentHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var req models.SuggestCategoryRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		return
	}

	suggestion, err := a.agentService.SuggestCategory(r.Context(), userID, req.Description, req.Amount)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, suggestion)
}
