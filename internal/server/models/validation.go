package models

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Password length bounds. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// Rule names reported in FieldError.Rule.
const (
	RuleBlank        = "blank"
	RuleTooLong      = "too_long"
	RuleTooShort     = "too_short"
	RuleInvalid      = "invalid"
	RuleTaken        = "taken"
	RuleConfirmation = "confirmation"
)

var emailPattern = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-]+(\.[a-z\d\-]+)*\.[a-z]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("db")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("emailformat", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// FieldError describes one failed constraint.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationErrors is returned for rejected input. It matches
// common.ErrorValidation under errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+" "+fe.Rule)
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == common.ErrorValidation
}

// Has reports whether field failed any rule.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// ValidatePassword checks a plaintext password before it is hashed.
func ValidatePassword(plaintext string) error {
	switch {
	case strings.TrimSpace(plaintext) == "":
		return ValidationErrors{{Field: "password", Rule: RuleBlank}}
	case utf8.RuneCountInString(plaintext) < MinPasswordLength:
		return ValidationErrors{{Field: "password", Rule: RuleTooShort}}
	case len(plaintext) > MaxPasswordBytes:
		return ValidationErrors{{Field: "password", Rule: RuleTooLong}}
	}
	return nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: ruleName(fe.Tag())})
	}
	return out
}

func ruleName(tag string) string {
	switch tag {
	case "required", "notblank":
		return RuleBlank
	case "max":
		return RuleTooLong
	case "min":
		return RuleTooShort
	default:
		return RuleInvalid
	}
}
