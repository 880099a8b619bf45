package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"

	"spendwise/internal/apperror"
	"spendwise/internal/config"
	"spendwise/internal/metrics"
	"spendwise/internal/models"
	"spendwise/internal/repositories"
	"spendwise/internal/utils"
)

const MaxAge = 86400 * 30

// AuthService completes social logins.
type AuthService interface {
	HandleLogin(ctx context.Context, u goth.User) (models.TokenPair, error)
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   *utils.TokenManager
	now      func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, tokens *utils.TokenManager) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens, now: time.Now}
}

// InitializeGoth registers the configured providers and the session store
// gothic keeps OAuth state in. It must run once before the OAuth routes serve.
func InitializeGoth(cfg *config.Config) {
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.MaxAge(MaxAge)

	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.SecureCookies
	store.Options.SameSite = http.SameSiteLaxMode

	gothic.Store = store

	base := strings.TrimRight(cfg.OAuthCallbackBase, "/")
	var providers []goth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, base+"/api/auth/google/callback", "email", "profile"))
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, base+"/api/auth/facebook/callback", "email"))
	}
	goth.UseProviders(providers...)
	log.Info().Int("providers", len(providers)).Msg("Goth providers initialized")
}

// HandleLogin finds the account with the provider's email, creating it on
// first login, and issues a token pair for it.
func (a *authService) HandleLogin(ctx context.Context, u goth.User) (models.TokenPair, error) {
	log.Info().Str("email", u.Email).Str("provider", u.Provider).Msg("Attempting to handle login for user")
	if u.Email == "" {
		log.Error().Msg("Missing email in Goth user data")
		return models.TokenPair{}, apperror.NewAuthError("provider did not return an email address", nil)
	}

	user, err := a.userRepo.FindByEmail(ctx, u.Email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		user, err = a.createFromProvider(ctx, u)
		if err != nil {
			return models.TokenPair{}, err
		}
	case err != nil:
		log.Error().Err(err).Str("email", u.Email).Msg("Error finding user by email")
		return models.TokenPair{}, apperror.NewDatabaseError("error finding user by email", err)
	default:
		log.Info().Str("email", u.Email).Str("user_id", user.ID.Hex()).Msg("User found in database")
	}

	pair, err := a.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("Error generating JWT for user")
		return models.TokenPair{}, apperror.NewInternalError("error generating token", err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

func (a *authService) createFromProvider(ctx context.Context, u goth.User) (*models.User, error) {
	log.Info().Str("email", u.Email).Msg("User not found, creating new user")

	// The nickname becomes the username only while nobody else holds it.
	username := strings.TrimSpace(u.NickName)
	if username != "" {
		taken, err := a.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, apperror.NewDatabaseError("error checking username", err)
		}
		if taken {
			username = ""
		}
	}

	now := a.now().UTC().Truncate(time.Millisecond)
	newUser := &models.User{
		Email:         u.Email,
		Username:      username,
		DisplayName:   u.Name,
		CreatedAt:     now,
		RevokedTokens: []string{},
		Categories:    models.DefaultCategories(now),
		Expenses:      []models.Expense{},
	}
	created, err := a.userRepo.Create(ctx, newUser)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperror.NewConflictError("user already exists", err)
		}
		log.Error().Err(err).Str("email", u.Email).Msg("Error creating new user")
		return nil, apperror.NewDatabaseError("error creating user", err)
	}

	metrics.NewUsersTotal.Inc()
	log.Info().Str("email", u.Email).Str("user_id", created.ID.Hex()).Msg("New user created successfully")
	return created, nil
}
