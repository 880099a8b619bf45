package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"spendwise/internal/apperror"
	"spendwise/internal/metrics"
	"spendwise/internal/models"
	"spendwise/internal/repositories"
	"spendwise/internal/utils"
)

const bcryptCost = 10

// UserService defines the interface for user-related business logic.
type UserService interface {
	RegisterUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	LoginUser(ctx context.Context, creds *models.Login) (models.TokenPair, error)
	RefreshToken(ctx context.Context, claims *utils.Claims) (models.TokenPair, error)
	Logout(ctx context.Context, userID primitive.ObjectID, claims *utils.Claims, refreshToken string) error
	CheckEmail(ctx context.Context, email string) (bool, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	GetTotalUsers(ctx context.Context) (int64, error)
	RunTotalUsersGauge(ctx context.Context, interval time.Duration)
}

type userService struct {
	userRepo repositories.UserRepository
	tokens   *utils.TokenManager
	now      func() time.Time
}

func NewUserService(userRepo repositories.UserRepository, tokens *utils.TokenManager) UserService {
	return &userService{userRepo: userRepo, tokens: tokens, now: time.Now}
}

func (s *userService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.userRepo.CountAll(ctx)
}

// RunTotalUsersGauge refreshes app_total_users until ctx is done.
func (s *userService) RunTotalUsersGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.refreshTotalUsers(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshTotalUsers(ctx)
		}
	}
}

func (s *userService) refreshTotalUsers(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.GetTotalUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error updating total users gauge")
		return
	}
	metrics.TotalUsers.Set(float64(count))
}

func (s *userService) RegisterUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	log.Debug().Str("email", email).Str("username", username).Msg("Attempting to register user")

	if (username == "" && email == "") || req.Password == "" {
		log.Warn().Msg("Username/email and password are required for registration")
		return nil, apperror.NewValidationError("username or email, and password are required", nil)
	}

	taken, err := s.identifierTaken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if taken {
		log.Warn().Str("email", email).Str("username", username).Msg("User already exists")
		return nil, apperror.NewConflictError("user already exists", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password during registration")
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		Username:      username,
		Email:         email,
		DisplayName:   req.DisplayName,
		Password:      string(hashedPassword),
		CreatedAt:     now,
		RevokedTokens: []string{},
		Categories:    models.DefaultCategories(now),
		Expenses:      []models.Expense{},
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			log.Warn().Str("email", email).Str("username", username).Msg("User already exists during insertion")
			return nil, apperror.NewConflictError("user already exists", err)
		}
		return nil, apperror.NewDatabaseError("failed to register user", err)
	}

	createdUser.Password = ""
	createdUser.Expenses = nil
	metrics.NewUsersTotal.Inc()
	log.Info().Str("user_id", createdUser.ID.Hex()).Str("email", email).Msg("User registered successfully")

	if count, err := s.GetTotalUsers(ctx); err == nil {
		metrics.TotalUsers.Set(float64(count))
	}
	return createdUser, nil
}

func (s *userService) identifierTaken(ctx context.Context, username, email string) (bool, error) {
	if username != "" {
		exists, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil || exists {
			return exists, wrapDB(err, "failed to check username")
		}
	}
	if email != "" {
		exists, err := s.userRepo.ExistsByEmail(ctx, email)
		return exists, wrapDB(err, "failed to check email")
	}
	return false, nil
}

func wrapDB(err error, message string) error {
	if err == nil {
		return nil
	}
	return apperror.NewDatabaseError(message, err)
}

// LoginUser authenticates by username when one is given, otherwise by email.
func (s *userService) LoginUser(ctx context.Context, creds *models.Login) (models.TokenPair, error) {
	username := strings.TrimSpace(creds.Username)
	email := strings.TrimSpace(creds.Email)
	log.Debug().Str("email", email).Str("username", username).Msg("Attempting user login")

	if (username == "" && email == "") || creds.Password == "" {
		return models.TokenPair{}, apperror.NewValidationError("username or email, and password are required", nil)
	}

	var user *models.User
	var err error
	if username != "" {
		user, err = s.userRepo.FindByUsername(ctx, username)
	} else {
		user, err = s.userRepo.FindByEmail(ctx, email)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
			log.Warn().Str("email", email).Str("username", username).Msg("Invalid credentials during login attempt")
			return models.TokenPair{}, apperror.NewAuthError("invalid credentials", nil)
		}
		log.Error().Err(err).Str("email", email).Msg("Error finding user for login")
		return models.TokenPair{}, apperror.NewDatabaseError("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("user_id", user.ID.Hex()).Msg("Invalid credentials (password mismatch) during login attempt")
		return models.TokenPair{}, apperror.NewAuthError("invalid credentials", nil)
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("Could not generate token for user")
		return models.TokenPair{}, apperror.NewInternalError("could not generate token", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("User logged in successfully")
	return pair, nil
}

// RefreshToken issues a new access token for the holder of a valid refresh
// token. The refresh token itself stays valid until it expires or is revoked.
func (s *userService) RefreshToken(ctx context.Context, claims *utils.Claims) (models.TokenPair, error) {
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.TokenPair{}, apperror.NewAuthError("invalid token", err)
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, apperror.NewAuthError("user no longer exists", err)
		}
		return models.TokenPair{}, apperror.NewDatabaseError("failed to look up user", err)
	}

	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return models.TokenPair{}, apperror.NewInternalError("could not generate token", err)
	}
	log.Debug().Str("user_id", userID.Hex()).Msg("Access token refreshed")
	return models.TokenPair{AccessToken: access}, nil
}

// Logout revokes the presented access token and, when given, the caller's
// refresh token.
func (s *userService) Logout(ctx context.Context, userID primitive.ObjectID, claims *utils.Claims, refreshToken string) error {
	ids := []string{claims.ID}
	if refreshToken != "" {
		refresh, err := s.tokens.Parse(refreshToken, utils.RefreshToken)
		if err != nil || refresh.UserID != userID.Hex() {
			return apperror.NewValidationError("invalid refresh token", err)
		}
		ids = append(ids, refresh.ID)
	}

	for _, id := range ids {
		if err := s.userRepo.RevokeToken(ctx, userID, id); err != nil {
			return storeError(err, "failed to revoke token")
		}
		metrics.TokensRevokedTotal.Inc()
	}
	log.Info().Str("user_id", userID.Hex()).Int("revoked", len(ids)).Msg("User logged out")
	return nil
}

func (s *userService) CheckEmail(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, apperror.NewValidationError("email is required", nil)
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, strings.TrimSpace(email))
	return exists, wrapDB(err, "failed to check email")
}

func (s *userService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, apperror.NewValidationError("username is required", nil)
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, strings.TrimSpace(username))
	return exists, wrapDB(err, "failed to check username")
}

func (s *userService) GetUserProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	log.Debug().Str("user_id", userID.Hex()).Msg("Attempting to retrieve user profile")
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Str("user_id", userID.Hex()).Msg("User not found for GetUserProfile")
		}
		return nil, storeError(err, "failed to fetch user profile")
	}

	user.Password = ""
	user.Expenses = nil
	return user, nil
}
