package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "householdrisk/internal/errors"
)

// DefaultMaxBodySize caps request bodies at 1 MiB
const DefaultMaxBodySize = 1 << 20

// tagFinite rejects NaN and infinite floats
const tagFinite = "finite"

// RequestValidator decodes JSON bodies and validates them with struct tags
type RequestValidator struct {
	validate    *validator.Validate
	maxBodySize int64
}

// NewRequestValidator creates a validator that reports JSON field names
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails on a malformed tag or nil func, so a failure
	// here is a programming error and must not surface per request.
	if err := v.RegisterValidation(tagFinite, isFinite); err != nil {
		panic(fmt.Sprintf("register %q validation: %v", tagFinite, err))
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{validate: v, maxBodySize: DefaultMaxBodySize}
}

// Struct validates an already decoded value. Failures come back as an
// APIError listing every rejected field.
func (rv *RequestValidator) Struct(v any) error {
	err := rv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apierrors.NewValidationErrors(apierrors.FieldErrors(fieldErrs))
	}
	return apierrors.InvalidRequestWithError(err)
}

// DecodeJSON reads r's body into dst and validates it. Unknown fields are
// ignored.
func (rv *RequestValidator) DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierrors.InvalidJSON(errors.New("request body is empty"))
	}
	if r.ContentLength > rv.maxBodySize {
		return apierrors.NewWithDetails(
			http.StatusRequestEntityTooLarge,
			apierrors.CodePayloadTooLarge,
			"Request body exceeds maximum allowed size",
			map[string]any{"max_size": rv.maxBodySize, "size": r.ContentLength},
		)
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, rv.maxBodySize))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apierrors.InvalidJSON(errors.New("request body is empty"))
		case errors.As(err, &typeErr):
			return apierrors.ErrValidation(typeErr.Field, fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type))
		default:
			return apierrors.InvalidJSON(err)
		}
	}

	return rv.Struct(dst)
}

func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}
