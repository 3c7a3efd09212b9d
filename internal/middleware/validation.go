package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 1 << 20

// ErrInvalidJSON marks a body that could not be decoded, as opposed to one
// that decoded but failed validation.
var ErrInvalidJSON = errors.New("invalid request body")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
	return v
}

// DecodeAndValidate reads one JSON document from the body into v and runs
// its validate tags. Unknown fields and trailing data are rejected.
func DecodeAndValidate(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after document", ErrInvalidJSON)
	}
	return validate.Struct(v)
}

// ValidationError is one field failure as reported to clients.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]func(param string) string{
	"required": func(string) string { return "This field is required" },
	"email":    func(string) string { return "Invalid email format" },
	"min":      func(string) string { return "Value is too short" },
	"max":      func(string) string { return "Value is too long" },
	"len":      func(p string) string { return "Value must have length " + p },
	"oneof":    func(p string) string { return "Value must be one of: " + p },
	"uuid":     func(string) string { return "Invalid identifier" },
	"uuid4":    func(string) string { return "Invalid identifier" },
	"url":      func(string) string { return "Invalid URL" },
	"numeric":  func(string) string { return "Value must be numeric" },
	"gte":      func(p string) string { return "Value must be greater than or equal to " + p },
	"lte":      func(p string) string { return "Value must be less than or equal to " + p },
	"gt":       func(p string) string { return "Value must be greater than " + p },
	"lt":       func(p string) string { return "Value must be less than " + p },
}

// FormatValidationErrors returns nil unless err came from the validator.
func FormatValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := "Invalid value"
		if format, ok := tagMessages[fe.Tag()]; ok {
			msg = format(fe.Param())
		}
		out = append(out, ValidationError{Field: fe.Field(), Message: msg})
	}
	return out
}
