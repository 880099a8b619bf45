package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_new_users_total",
		Help: "Total number of new user registrations.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of login attempts (successful and failed).",
	}, []string{"status"}) // status: "success" or "failed"
	TotalUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "app_total_users",
		Help: "Total number of registered users in the application.",
	})
	TokensRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_tokens_revoked_total",
		Help: "Total number of tokens revoked by logout.",
	})

	// Expense Tracking Metrics
	ExpenseCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_expense_created_total",
		Help: "Total number of expenses recorded.",
	})
	ExpenseDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_expense_deleted_total",
		Help: "Total number of expense delete requests.",
	})
	ExpenseQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_expense_queries_total",
		Help: "Total number of expense list queries by sort field.",
	}, []string{"sort_by"})
	CategoryCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_category_created_total",
		Help: "Total number of categories created.",
	})
	CategorySuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_category_suggestions_total",
		Help: "Total number of category suggestions requested.",
	}, []string{"status"})
)
