package onboarding

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"vinoclub/internal/apperr"
	"vinoclub/internal/hostcode"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("hostcode", func(fl validator.FieldLevel) bool {
		return hostcode.Valid(fl.Field().String())
	})
	return v
}

// Keyed by "<Field>.<tag>".
var fieldMessages = map[string]string{
	"FullName.required":        "Full name must be at least 2 characters",
	"FullName.min":             "Full name must be at least 2 characters",
	"FullName.max":             "Full name must be less than 100 characters",
	"Email.required":           "Please enter a valid email address",
	"Email.email":              "Please enter a valid email address",
	"Password.required":        "Password must be at least 8 characters",
	"Password.min":             "Password must be at least 8 characters",
	"ConfirmPassword.eqfield":  "Passwords do not match",
	"ClubName.required":        "Club name must be at least 2 characters",
	"ClubName.min":             "Club name must be at least 2 characters",
	"ClubName.max":             "Club name must be less than 100 characters",
	"ClubType.oneof":           "Club type must be fixed or multi_host",
	"ClubAddress.min":          "Please provide a complete club address",
	"ClubAddress.max":          "Club address must be less than 500 characters",
	"AboutClub.max":            "About club must be less than 500 characters",
	"WinePreferences.max":      "Wine preferences must be less than 500 characters",
	"HostCode.len":             "Host code must be exactly 8 characters",
	"HostCode.hostcode":        "Host code must contain only uppercase letters and numbers",
	"RequestMessage.max":       "Request message must be less than 500 characters",
	"NewPassword.min":          "Password must be at least 8 characters",
	"NewPassword.required":     "Current password and new password are required",
	"CurrentPassword.required": "Current password and new password are required",
}

// validateInput runs struct validation and reports the first failure as a
// user-facing validation error.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid request")
	}

	first := verrs[0]
	if first.Tag() == "password" {
		return apperr.Validation(passwordProblem(first.Value().(string)))
	}
	if msg, ok := fieldMessages[first.Field()+"."+first.Tag()]; ok {
		return apperr.Validation(msg)
	}
	return apperr.Validation("Invalid " + strings.ToLower(first.Field()))
}

func passwordProblem(pw string) string {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}
