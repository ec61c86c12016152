package service

import (
	"errors"
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type RegisterInput struct {
	Username string `validate:"required,min=3,max=32,username"`
	Email    string `validate:"omitempty,max=254,email"`
	Password string `validate:"required,min=8,max=72,password"`
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type CredentialValidator struct {
	validate *validator.Validate
}

func NewCredentialValidator() CredentialValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration happens once at construction; the tags above depend on it.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return isValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return isValidPassword(fl.Field().String())
	})
	return CredentialValidator{validate: v}
}

func (cv CredentialValidator) Validate(input RegisterInput) error {
	err := cv.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ErrValidation.WithCause(err)
	}

	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "Username":
		if fe.Tag() == "username" {
			return ErrValidationUsernameChars
		}
		return ErrValidationUsernameLength
	case "Password":
		if fe.Tag() == "password" {
			return ErrValidationPasswordLatinDigit
		}
		return ErrValidationPasswordLength
	case "Email":
		return ErrValidationEmail
	default:
		return ErrValidation.WithCause(fe)
	}
}

func isValidUsername(value string) bool {
	if !usernameRegex.MatchString(value) {
		return false
	}

	if !unicode.IsLetter(rune(value[0])) && !unicode.IsDigit(rune(value[0])) {
		return false
	}

	if !unicode.IsLetter(rune(value[len(value)-1])) && !unicode.IsDigit(rune(value[len(value)-1])) {
		return false
	}

	return true
}

func isValidPassword(value string) bool {
	hasLetter := false
	hasDigit := false

	for _, r := range value {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}

	return false
}
