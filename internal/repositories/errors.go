package repositories

import "errors"

var (
	// ErrNotFound means the addressed user (or OTP) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate means a unique value (login name, email, expense id) is taken.
	ErrDuplicate = errors.New("duplicate")
)
