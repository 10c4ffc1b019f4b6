package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrValidation wraps struct validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps JSON or query decoding failures.
	ErrBinding = errors.New("binding failed")
)

// processKeyPattern matches the keys definitions are deployed under.
var processKeyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validator returns the shared validator. Field names in its errors are the
// JSON names.
var Validator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("uuid", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}

		_, err := uuid.Parse(value)

		return err == nil
	})
	_ = v.RegisterValidation("notempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("processkey", func(fl validator.FieldLevel) bool {
		return processKeyPattern.MatchString(fl.Field().String())
	})

	return v
})

// Validate validates v, wrapping failures in ErrValidation.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	return bindThenValidate(c.ShouldBindJSON(v), v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	return bindThenValidate(c.ShouldBindQuery(v), v)
}

func bindThenValidate(bindErr error, v any) error {
	if bindErr != nil {
		return fmt.Errorf("%w: %w", ErrBinding, bindErr)
	}

	return Validate(v)
}

// ValidationErrors returns a message per failing field, keyed by JSON name.
func ValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}

	for _, fe := range verrs {
		fields[fe.Field()] = validationMessage(fe)
	}

	return fields
}

// validationMessages holds message templates by tag; {param} is replaced by
// the tag parameter.
var validationMessages = map[string]string{
	"required":   "this field is required",
	"uuid":       "must be a valid UUID",
	"notempty":   "must not be empty",
	"processkey": "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'",
	"gte":        "must be greater than or equal to {param}",
	"lte":        "must be less than or equal to {param}",
	"gt":         "must be greater than {param}",
	"lt":         "must be less than {param}",
	"oneof":      "must be one of: {param}",
}

func validationMessage(fe validator.FieldError) string {
	switch tag := fe.Tag(); tag {
	case "min", "max":
		return minMaxMessage(tag, fe.Param(), fe.Type().Kind())
	default:
		if msg, ok := validationMessages[tag]; ok {
			return strings.ReplaceAll(msg, "{param}", fe.Param())
		}

		return "failed validation: " + tag
	}
}

// minMaxMessage counts characters for strings and values otherwise.
func minMaxMessage(tag, param string, kind reflect.Kind) string {
	unit := ""
	if kind == reflect.String {
		unit = " characters"
	}

	bound := "at most"
	if tag == "min" {
		bound = "at least"
	}

	return "must be " + bound + " " + param + unit
}
