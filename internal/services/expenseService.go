package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spendwise/internal/apperror"
	"spendwise/internal/metrics"
	"spendwise/internal/models"
	"spendwise/internal/query"
	"spendwise/internal/repositories"
)

type ExpenseService interface {
	ListExpenses(ctx context.Context, userID primitive.ObjectID, filter query.FilterParams, params query.ListParams) ([]models.Expense, error)
	AddExpense(ctx context.Context, userID primitive.ObjectID, req *models.AddExpenseRequest) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID primitive.ObjectID, expenseID string) error
}

type expenseService struct {
	expenseRepo repositories.ExpenseRepository
	now         func() time.Time
}

func NewExpenseService(expenseRepo repositories.ExpenseRepository) ExpenseService {
	return &expenseService{expenseRepo: expenseRepo, now: time.Now}
}

func (s *expenseService) ListExpenses(ctx context.Context, userID primitive.ObjectID, filter query.FilterParams, params query.ListParams) ([]models.Expense, error) {
	predicates, err := query.BuildPredicates(filter)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.Hex()).Msg("Rejected expense filter")
		return nil, err
	}

	plan, err := query.NewPlan(userID, predicates, params)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.Hex()).Msg("Rejected expense list parameters")
		return nil, err
	}
	log.Debug().Str("user_id", userID.Hex()).Object("plan", plan).Msg("Listing expenses")

	expenses, err := s.expenseRepo.Query(ctx, plan)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list expenses", err)
	}
	metrics.ExpenseQueriesTotal.WithLabelValues(plan.SortField).Inc()
	return expenses, nil
}

func (s *expenseService) AddExpense(ctx context.Context, userID primitive.ObjectID, req *models.AddExpenseRequest) (*models.Expense, error) {
	if req.Amount == nil {
		return nil, apperror.NewValidationError("amount is required", nil)
	}
	if math.IsNaN(*req.Amount) || math.IsInf(*req.Amount, 0) {
		return nil, apperror.NewValidationError("amount must be a finite number", nil)
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, apperror.NewValidationError("category is required", nil)
	}

	date := s.now().UTC()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := query.ParseDate(req.Date)
		if err != nil {
			return nil, apperror.NewValidationError("invalid date", err)
		}
		date = parsed
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	expense := models.Expense{
		ID:          id,
		Amount:      *req.Amount,
		Category:    req.Category,
		Description: req.Description,
		// The store keeps millisecond precision.
		Date: date.Truncate(time.Millisecond),
	}

	if err := s.expenseRepo.Append(ctx, userID, expense); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			log.Warn().Str("user_id", userID.Hex()).Str("expense_id", id).Msg("Expense id already in use")
			return nil, apperror.NewConflictError("an expense with this id already exists", err)
		}
		return nil, storeError(err, "failed to add expense")
	}

	metrics.ExpenseCreatedTotal.Inc()
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", id).Msg("Expense added")
	return &expense, nil
}

// DeleteExpense succeeds whether or not the expense existed.
func (s *expenseService) DeleteExpense(ctx context.Context, userID primitive.ObjectID, expenseID string) error {
	if strings.TrimSpace(expenseID) == "" {
		return apperror.NewValidationError("_id is required", nil)
	}

	removed, err := s.expenseRepo.Remove(ctx, userID, expenseID)
	if err != nil {
		return storeError(err, "failed to delete expense")
	}

	metrics.ExpenseDeletedTotal.Inc()
	log.Info().Str("user_id", userID.Hex()).Str("expense_id", expenseID).Bool("removed", removed).Msg("Expense delete processed")
	return nil
}
