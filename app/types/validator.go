package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// ValidationError names the input field that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// firstFieldError runs struct validation and maps the first failing field
// through sentinels. Fields missing from sentinels fall back to fallback.
func firstFieldError(s any, sentinels map[string]error, fallback error) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return &ValidationError{Err: fallback}
	}

	field := errs[0].Field()
	if sentinel, found := sentinels[field]; found {
		return &ValidationError{Field: field, Err: sentinel}
	}
	return &ValidationError{Field: field, Err: fieldMessageError(fallback, errs[0])}
}

type fieldMessage struct {
	base    error
	message string
}

func (e *fieldMessage) Error() string { return e.message }
func (e *fieldMessage) Unwrap() error { return e.base }

func fieldMessageError(base error, fe validator.FieldError) error {
	return &fieldMessage{base: base, message: fe.Field() + " " + validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "eqfield":
		return "must match " + fe.Param()
	}
	return "is invalid"
}
