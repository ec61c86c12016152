package service

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/session-auth/backend/internal/common/errors"
)

// The authentication taxonomy is shared with the HTTP layer through
// commonerrors; the aliases keep call sites in this package short.
var (
	ErrInvalidCredentials = commonerrors.ErrInvalidCredentials
	ErrStore              = commonerrors.ErrStore
	ErrTimeout            = commonerrors.ErrTimeout
)

var (
	ErrUsernameTaken = commonerrors.NewDomainError(
		"USERNAME_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"username already exists",
	)

	ErrValidation = commonerrors.NewDomainError(
		"VALIDATION_FAILED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"validation failed",
	)

	ErrValidationUsernameLength = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username must be between 3 and 32 characters",
	)

	ErrValidationUsernameChars = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_CHARS",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username may contain latin letters, digits, '_' and '-' and must start and end with a letter or digit",
	)

	ErrValidationPasswordLength = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must be between 8 and 72 characters",
	)

	ErrValidationPasswordLatinDigit = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LATIN_DIGIT",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must contain at least one letter and one digit",
	)

	ErrValidationEmail = commonerrors.NewDomainError(
		"VALIDATION_EMAIL",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"email address is not valid",
	)
)

// StoreError wraps a backend failure detail into the ErrStore taxonomy entry.
func StoreError(detail error) error {
	return commonerrors.StoreError(detail)
}
