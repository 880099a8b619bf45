package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"spendwise/internal/config"
	"spendwise/internal/database"
	"spendwise/internal/handlers"
	"spendwise/internal/middlewares"
	"spendwise/internal/repositories"
	"spendwise/internal/repositories/memory"
	"spendwise/internal/services"
	"spendwise/internal/utils"
)

const (
	totalUsersInterval   = 30 * time.Second
	visitorSweepInterval = time.Minute
	visitorIdleTimeout   = 3 * time.Minute
	otpPurgeInterval     = 10 * time.Minute
)

// Repositories is the storage backend the server runs on.
type Repositories struct {
	Users      repositories.UserRepository
	Expenses   repositories.ExpenseRepository
	Categories repositories.CategoryRepository
	OTPs       repositories.OTPRepository
}

// Dependencies are the collaborators New wires together. LLM may be nil.
type Dependencies struct {
	Health handlers.HealthChecker
	Repos  Repositories
	Email  services.EmailService
	LLM    llms.Model
}

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	health     handlers.HealthChecker
	closeDB    func(context.Context) error

	tokens      *utils.TokenManager
	auth        *middlewares.AuthMiddleware
	limiter     *middlewares.RateLimiter
	userService services.UserService
	otpService  services.OTPService

	expenseService  services.ExpenseService
	categoryService services.CategoryService
	authService     services.AuthService
	agentService    *services.AgentService
}

func New(cfg *config.Config, deps Dependencies) *Server {
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	repos := deps.Repos

	s := &Server{
		cfg:             cfg,
		health:          deps.Health,
		tokens:          tokens,
		auth:            middlewares.NewAuthMiddleware(tokens, repos.Users),
		limiter:         middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		userService:     services.NewUserService(repos.Users, tokens),
		otpService:      services.NewOTPService(repos.Users, repos.OTPs, deps.Email),
		expenseService:  services.NewExpenseService(repos.Expenses),
		categoryService: services.NewCategoryService(repos.Categories),
		authService:     services.NewAuthService(repos.Users, tokens),
		agentService:    services.NewAgentService(repos.Categories, deps.LLM),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// NewFromConfig connects the configured backend and builds the server.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	deps := Dependencies{
		Email: services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}

	llm, err := services.NewLLM(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	switch {
	case errors.Is(err, services.ErrMissingAPIKey):
		log.Warn().Msg("API_KEY not set, category suggestions are disabled")
	case err != nil:
		return nil, err
	default:
		deps.LLM = llm
	}

	var closeDB func(context.Context) error
	switch cfg.DataBackend {
	case config.BackendMemory:
		store := memory.NewStore()
		deps.Health = memoryHealth{}
		deps.Repos = Repositories{
			Users:      store.Users(),
			Expenses:   store.Expenses(),
			Categories: store.Categories(),
			OTPs:       store.OTPs(),
		}
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
	default:
		db, err := database.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		deps.Health = db
		deps.Repos = Repositories{
			Users:      repositories.NewUserRepository(db),
			Expenses:   repositories.NewExpenseRepository(db),
			Categories: repositories.NewCategoryRepository(db),
			OTPs:       repositories.NewOTPRepository(db),
		}
		closeDB = db.Close
	}

	if cfg.OAuthEnabled() {
		services.InitializeGoth(cfg)
	}

	s := New(cfg, deps)
	s.closeDB = closeDB
	return s, nil
}

type memoryHealth struct{}

func (memoryHealth) Health() map[string]string {
	return map[string]string{"status": "up", "message": "in-memory storage"}
}

// Start runs the background jobs until ctx is done and serves HTTP until
// the server is shut down.
func (s *Server) Start(ctx context.Context) error {
	go s.userService.RunTotalUsersGauge(ctx, totalUsersInterval)
	go s.limiter.CleanupVisitors(ctx, visitorSweepInterval, visitorIdleTimeout)
	go s.purgeExpiredOTPs(ctx)

	log.Info().Int("port", s.cfg.Port).Str("backend", s.cfg.DataBackend).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) purgeExpiredOTPs(ctx context.Context) {
	ticker := time.NewTicker(otpPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.otpService.PurgeExpired(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to purge expired OTPs")
			}
		}
	}
}

// GracefulShutdown waits for SIGINT or SIGTERM, stops the background jobs
// through cancel and drains in-flight requests.
func (s *Server) GracefulShutdown(cancel context.CancelFunc, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}
	if s.closeDB != nil {
		if err := s.closeDB(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from database")
		}
	}

	log.Info().Msg("Server exiting")
	done <- true
}
