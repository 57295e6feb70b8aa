// Package validate holds input predicates shared by request handlers.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 8

	// PasswordSymbols is the set a password must draw at least one symbol from.
	PasswordSymbols = `!@#$%^&*(),.?":{}|<>`
)

const (
	ErrPasswordTooShort  = "password must be at least 8 characters long"
	ErrPasswordNoUpper   = "password must contain at least one uppercase letter"
	ErrPasswordNoLower   = "password must contain at least one lowercase letter"
	ErrPasswordNoDigit   = "password must contain at least one number"
	ErrPasswordNoSpecial = "password must contain at least one special character"
)

var (
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	jsSchemeRe     = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)on\w+=`)

	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

type StrengthResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// IsValidEmail accepts anything shaped like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidatePasswordStrength reports every rule s violates.
func ValidatePasswordStrength(s string) StrengthResult {
	var upper, lower, digit, special bool

	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			special = true
		}
	}

	var errs []string
	if len([]rune(s)) < MinPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}
	if !upper {
		errs = append(errs, ErrPasswordNoUpper)
	}
	if !lower {
		errs = append(errs, ErrPasswordNoLower)
	}
	if !digit {
		errs = append(errs, ErrPasswordNoDigit)
	}
	if !special {
		errs = append(errs, ErrPasswordNoSpecial)
	}

	return StrengthResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

// SanitizeInput strips angle brackets, javascript: schemes and inline
// event-handler attributes, repeating until nothing changes so removals
// cannot splice a new match together. Output must still be escaped when
// rendered.
func SanitizeInput(s string) string {
	for {
		next := stripMarkup(s)
		if next == s {
			break
		}
		s = next
	}

	return strings.TrimSpace(s)
}

func stripMarkup(s string) string {
	s = angleBrackets.Replace(s)
	s = jsSchemeRe.ReplaceAllString(s, "")

	return eventHandlerRe.ReplaceAllString(s, "")
}

// Register installs the webmail_email and strong_password tags.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("webmail_email", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	}); err != nil {
		return err
	}

	return v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return ValidatePasswordStrength(fl.Field().String()).Valid
	})
}

// New returns a validator with the custom tags installed.
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic("validate: " + err.Error())
	}

	return v
}
