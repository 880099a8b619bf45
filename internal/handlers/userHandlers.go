package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"spendwise/internal/models"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (u *UserHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		return
	}

	exists, err := u.userService.CheckEmail(r.Context(), req.Email)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.AvailabilityResponse{Exist: exists})
}

func (u *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		return
	}

	exists, err := u.userService.CheckUsername(r.Context(), req.Username)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.AvailabilityResponse{Exist: exists})
}

func (u *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Invalid user data input for Register")
		return
	}

	registeredUser, err := u.userService.RegisterUser(r.Context(), &req)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, registeredUser)
}

func (u *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Login
	if err := utils.DecodeJSONBody(w, r, &creds); err != nil {
		log.Warn().Err(err).Msg("Invalid request body for Login")
		return
	}

	pair, err := u.userService.LoginUser(r.Context(), &creds)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, pair)
}

// Refresh expects the refresh token in the Authorization header.
func (u *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := utils.ClaimsFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	pair, err := u.userService.RefreshToken(r.Context(), claims)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, pair)
}

func (u *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}
	claims, ok := utils.ClaimsFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	var req models.LogoutRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSONBody(w, r, &req); err != nil {
			return
		}
	}

	if err := u.userService.Logout(r.Context(), userID, claims, req.RefreshToken); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (u *UserHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	user, err := u.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}
