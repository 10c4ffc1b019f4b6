package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf keys, so messages name the setting to fix.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(koanfKey)

	return v
}

// koanfKey returns the koanf tag of a field. An empty result keeps the Go name.
func koanfKey(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// Validate validates the configuration and returns an error if invalid.
// The engine must not start with an invalid config.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		lines = append(lines, describe(fe))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	key := keyPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		field, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", key, strings.ToLower(field), value)
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", key, sibling(key, fe.Param()))
	default:
		return fmt.Sprintf("%s failed validation: %s", key, fe.Tag())
	}
}

// keyPath drops the root struct from a namespace: "Config.server.port" becomes "server.port".
func keyPath(namespace string) string {
	if _, path, ok := strings.Cut(namespace, "."); ok {
		return path
	}

	return namespace
}

// sibling names the field a cross-field rule compares against.
func sibling(key, field string) string {
	field = strings.ToLower(field)

	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[:i+1] + field
	}

	return field
}
