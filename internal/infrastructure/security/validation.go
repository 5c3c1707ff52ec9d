// Package security provides form decoding, input validation and request
// guards for the web adapter
package security

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	apperrors "github.com/JosephChataignon/hAIckers-team/pkg/errors"
)

// MaxFormBytes bounds the body of any form submission
const MaxFormBytes = 1 << 20

// ValidationService decodes and validates form submissions
type ValidationService struct {
	logger    *zap.Logger
	validator *validator.Validate
}

// NewValidationService creates a new validation service
func NewValidationService(logger *zap.Logger) *ValidationService {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report the form field name instead of the Go field name
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})

	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		// Only fails on an empty tag or nil func
		panic(err)
	}

	return &ValidationService{
		logger:    logger.Named("validation"),
		validator: validate,
	}
}

// ValidateStruct validates s and converts failures into a VALIDATION_FAILED
// AppError whose details list every offending field
func (v *ValidationService) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Wrap(err, "validation could not run")
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}

	v.logger.Debug("Form rejected", zap.Int("field_errors", len(out)))
	return apperrors.NewValidationErrors(out)
}

// message formats a single field error for display
func message(fe validator.FieldError) string {
	field := fe.Field()
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if numeric {
			return fmt.Sprintf("%s must be at least %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("%s must be at most %s", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// DecodeForm parses the request body and copies the values named by each
// field's `form` tag into dst, which must point to a struct. Supported
// field kinds are string, int and float64. Values that do not parse are
// reported as validation errors.
func (v *ValidationService) DecodeForm(r *http.Request, dst interface{}) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxFormBytes)
	}
	if err := r.ParseForm(); err != nil {
		return apperrors.NewBadRequestError("the form could not be read").WithCause(err)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return apperrors.NewInternalError(fmt.Sprintf("cannot decode form into %T", dst))
	}
	rv = rv.Elem()
	rt := rv.Type()

	var bad []apperrors.ValidationError
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := sf.Tag.Get("form")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}

		raw := r.PostForm.Get(name)
		field := rv.Field(i)

		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Int, reflect.Int64:
			if strings.TrimSpace(raw) == "" {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				bad = append(bad, notANumber(name, raw, "whole number"))
				continue
			}
			field.SetInt(n)
		case reflect.Float64:
			if strings.TrimSpace(raw) == "" {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				bad = append(bad, notANumber(name, raw, "number"))
				continue
			}
			field.SetFloat(f)
		default:
			return apperrors.NewInternalError(fmt.Sprintf("unsupported form field %s of kind %s", sf.Name, field.Kind()))
		}
	}

	if len(bad) > 0 {
		return apperrors.NewValidationErrors(bad)
	}
	return nil
}

func notANumber(field, raw, kind string) apperrors.ValidationError {
	return apperrors.ValidationError{
		Field:   field,
		Value:   raw,
		Tag:     "number",
		Message: fmt.Sprintf("%s must be a %s", field, kind),
	}
}

// Bind decodes the form into dst and validates it
func (v *ValidationService) Bind(r *http.Request, dst interface{}) error {
	if err := v.DecodeForm(r, dst); err != nil {
		return err
	}
	return v.ValidateStruct(dst)
}
