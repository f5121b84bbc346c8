// Package validation adapts go-playground/validator to the API's error messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailPattern is the address format accepted for contact addresses and form senders
var EmailPattern = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-]+(\.[a-z\d\-]+)*\.[a-z]+$`)

// IsEmail reports whether s is an acceptable email address
func IsEmail(s string) bool {
	return EmailPattern.MatchString(s)
}

// Errors is a list of human readable violations
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, ", ")
}

// Validator implements echo.Validator on top of validator/v10
type Validator struct {
	validate *validator.Validate
}

var std = New()

// New builds a Validator that names fields after their json tags and knows the
// "email_format" rule.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Validate returns nil or Errors describing every violation of i
func (v *Validator) Validate(i interface{}) error {
	if msgs := v.Messages(i); len(msgs) > 0 {
		return Errors(msgs)
	}
	return nil
}

// Messages returns the violations of i as sentences ("Price must be greater than or equal to 0")
func (v *Validator) Messages(i interface{}) []string {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return msgs
}

// Struct validates i with the package level validator
func Struct(i interface{}) []string {
	return std.Messages(i)
}

// Humanize turns a json field name into a sentence subject: "es_name" becomes "Es name"
func Humanize(field string) string {
	field = strings.TrimSuffix(field, "_id")
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func message(fe validator.FieldError) string {
	field := Humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " can't be blank"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s is too short (minimum is %s characters)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s is too long (maximum is %s characters)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s doesn't match %s", field, Humanize(fe.Param()))
	default:
		return field + " is invalid"
	}
}
