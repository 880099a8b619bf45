package services

import (
	"errors"

	"spendwise/internal/apperror"
	"spendwise/internal/repositories"
)

// storeError turns a repository failure into an AppError. A missing user at
// this point means the token outlived its account.
func storeError(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperror.NewNotFoundError("user not found", err)
	}
	return apperror.NewDatabaseError(message, err)
}
