package workflow

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// validate checks the `validate` tags on domain.Job and domain.Application.
// Field names are reported in lowerCamelCase to match the API.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
	})
	return v
}

func validateJob(job domain.Job) error {
	return checkStruct(job)
}

func validateApplication(a domain.Application) error {
	return checkStruct(a)
}

// checkStruct returns the first failing field as a domain.ValidationError.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return domain.Invalid(fe.Field(), messageFor(fe.Tag()))
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	default:
		return "invalid value"
	}
}
