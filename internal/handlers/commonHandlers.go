package handlers

import (
	"net/http"

	"spendwise/internal/utils"
)

// HealthChecker reports the state of the storage backend.
type HealthChecker interface {
	Health() map[string]string
}

type CommonHandler struct {
	db HealthChecker
}

func NewCommonHandler(db HealthChecker) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Spendwise API"})
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.db.Health()
	code := http.StatusOK
	if stats["status"] == "down" {
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, code, stats)
}
