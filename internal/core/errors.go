package core

import "errors"

// Validation and invariant errors. Use cases fail fast on these; the
// dispatcher turns them into per-action failure text instead of aborting the
// whole message.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrCurrencyMismatch     = errors.New("currency mismatch")
	ErrInvalidPhone         = errors.New("invalid phone number")
	ErrNameTooShort         = errors.New("name too short")
	ErrDescriptionTooShort  = errors.New("description must have at least 3 characters")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidColor         = errors.New("invalid color format")
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")
	ErrInvalidGoal          = errors.New("goal must be a positive value")
	ErrMissingUser          = errors.New("user id is required")
)

// Not-found errors from the repositories.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoDefaultCategory   = errors.New("no default category available")
)

// IsNotFound reports whether err is one of the repository not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}
