package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spendwise/internal/handlers"
	"spendwise/internal/middlewares"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.NewPrometheusMiddleware().Instrument)
	r.Use(middlewares.NewCorsMiddleware(s.cfg.AllowedOrigins))

	ch := handlers.NewCommonHandler(s.health)
	r.HandleFunc("/", ch.IndexHandler).Methods("GET")
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.registerAuthRoutes(r)
	s.registerExpenseRoutes(r)
	s.registerCategoryRoutes(r)
	s.registerAgentRoutes(r)

	return r
}

// public limits anonymous callers by IP.
func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.limiter.Limit(h)
}

// protected requires an access token and limits the caller by user.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.auth.RequireAccess(s.limiter.Limit(h))
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	uh := handlers.NewUserHandler(s.userService)
	ah := handlers.NewAuthHandler(s.authService, s.otpService)

	r.Handle("/api/auth/check-email", s.public(uh.CheckEmail)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/check-username", s.public(uh.CheckUsername)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/register", s.public(uh.Register)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/login", s.public(uh.Login)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/refresh", s.auth.RequireRefresh(s.limiter.Limit(http.HandlerFunc(uh.Refresh)))).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/logout", s.protected(uh.Logout)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/forgot-password", s.public(ah.ForgotPasswordHandler)).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/reset-password", s.public(ah.ResetPasswordHandler)).Methods("POST", "OPTIONS")
	r.Handle("/api/me", s.protected(uh.GetMyProfile)).Methods("GET", "OPTIONS")

	if s.cfg.OAuthEnabled() {
		r.Handle("/api/auth/{provider}", s.public(ah.ProviderAuth)).Methods("GET", "OPTIONS")
		r.Handle("/api/auth/{provider}/callback", s.public(ah.ProviderCallback)).Methods("GET", "OPTIONS")
	}
}

func (s *Server) registerExpenseRoutes(r *mux.Router) {
	eh := handlers.NewExpenseHandler(s.expenseService)
	r.Handle("/api/expenses", s.protected(eh.GetExpenses)).Methods("GET", "OPTIONS")
	r.Handle("/api/expenses", s.protected(eh.AddExpense)).Methods("POST", "OPTIONS")
	r.Handle("/api/expenses", s.protected(eh.DeleteExpense)).Methods("DELETE", "OPTIONS")
}

func (s *Server) registerCategoryRoutes(r *mux.Router) {
	ch := handlers.NewCategoryHandler(s.categoryService)
	r.Handle("/api/categories", s.protected(ch.GetCategories)).Methods("GET", "OPTIONS")
	r.Handle("/api/categories", s.protected(ch.AddCategory)).Methods("POST", "OPTIONS")
	r.Handle("/api/categories", s.protected(ch.DeleteCategory)).Methods("DELETE", "OPTIONS")
}

func (s *Server) registerAgentRoutes(r *mux.Router) {
	ah := handlers.NewAgentHandler(s.agentService)
	r.Handle("/api/agent/suggest-category", s.protected(ah.SuggestCategory)).Methods("POST", "OPTIONS")
}
