package utils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/apperror"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

const maxBodyBytes = 1 << 20

// WithIdentity stores the authenticated user and the token claims that
// proved it on the request context.
func WithIdentity(ctx context.Context, userID primitive.ObjectID, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, claimsKey, claims)
}

func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return userID, ok && !userID.IsZero()
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext extracts the authenticated user id, writing a 401 when
// the request carries none.
func GetUserIDFromContext(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, error) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		SendJSONError(w, "Invalid user ID", http.StatusUnauthorized)
		return primitive.NilObjectID, errors.New("invalid user ID in context")
	}
	return userID, nil
}

// DecodeJSONBody decodes a bounded JSON request body into dst, writing a 400
// on failure.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			SendJSONError(w, "Request body is empty", http.StatusBadRequest)
			return err
		}
		SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return err
	}
	return nil
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Error marshalling JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

func SendJSONError(w http.ResponseWriter, message string, code int) {
	RespondWithError(w, code, message)
}

// RespondWithAppError writes the status and message of an AppError. Other
// errors become an opaque 500 so internal details never reach the client.
func RespondWithAppError(w http.ResponseWriter, err error) {
	if ae, ok := apperror.FromError(err); ok {
		code := ae.StatusCode()
		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Int("status", code).Msg("Request failed")
		}
		RespondWithError(w, code, ae.Message)
		return
	}
	log.Error().Err(err).Msg("Unhandled error")
	RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
