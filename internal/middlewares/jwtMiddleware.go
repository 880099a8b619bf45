package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/utils"
)

// RevocationChecker reports whether a token id was revoked by its owner.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, userID primitive.ObjectID, tokenID string) (bool, error)
}

type AuthMiddleware struct {
	tokens      *utils.TokenManager
	revocations RevocationChecker
}

func NewAuthMiddleware(tokens *utils.TokenManager, revocations RevocationChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revocations: revocations}
}

// RequireAccess admits requests bearing a valid, unrevoked access token.
func (m *AuthMiddleware) RequireAccess(next http.Handler) http.Handler {
	return m.require(utils.AccessToken, next)
}

// RequireRefresh admits requests bearing a valid, unrevoked refresh token.
func (m *AuthMiddleware) RequireRefresh(next http.Handler) http.Handler {
	return m.require(utils.RefreshToken, next)
}

func (m *AuthMiddleware) require(expected utils.TokenType, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			utils.SendJSONError(w, "Missing token", http.StatusUnauthorized)
			return
		}

		// Extract the token from the "Bearer <token>" format
		if !strings.HasPrefix(tokenString, "Bearer ") {
			utils.SendJSONError(w, "Invalid token format", http.StatusUnauthorized)
			return
		}
		tokenString = strings.TrimSpace(tokenString[len("Bearer "):])

		claims, err := m.tokens.Parse(tokenString, expected)
		if err != nil {
			log.Debug().Err(err).Str("expected", string(expected)).Msg("Rejected token")
			utils.SendJSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.SendJSONError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		revoked, err := m.revocations.IsTokenRevoked(r.Context(), userID, claims.ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to check token revocation")
			utils.SendJSONError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if revoked {
			utils.SendJSONError(w, "Token has been revoked", http.StatusUnauthorized)
			return
		}

		ctx := utils.WithIdentity(r.Context(), userID, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
