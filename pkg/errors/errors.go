// Package errors provides structured error handling for the application.
// Every adapter converts its failures into an AppError so views can show a
// message without knowing which collaborator failed.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ErrorCode classifies an AppError
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	CodeInvalidCredentials    ErrorCode = "INVALID_CREDENTIALS"
	CodeUsernameAlreadyExists ErrorCode = "USERNAME_ALREADY_EXISTS"
	CodeProfileNotFound       ErrorCode = "PROFILE_NOT_FOUND"
)

var statusCodes = map[ErrorCode]int{
	CodeBadRequest:            http.StatusBadRequest,
	CodeValidationFailed:      http.StatusBadRequest,
	CodeInvalidCredentials:    http.StatusUnauthorized,
	CodeProfileNotFound:       http.StatusNotFound,
	CodeUsernameAlreadyExists: http.StatusConflict,
	CodeExternalServiceError:  http.StatusBadGateway,
}

// AppError carries a code, a message safe to show, and the cause for logs
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
	// Origin is the file:line that built the error
	Origin string `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the code to an HTTP status, 500 when unmapped
func (e *AppError) StatusCode() int {
	if code, ok := statusCodes[e.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// UserMessage is the text shown to the person using the app. It never
// includes the cause.
func (e *AppError) UserMessage() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// MarshalLogObject lets zap.Object log the error with its context
func (e *AppError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("code", string(e.Code))
	enc.AddString("message", e.Message)
	if e.Details != "" {
		enc.AddString("details", e.Details)
	}
	if e.Cause != nil {
		enc.AddString("cause", e.Cause.Error())
	}
	if e.Origin != "" {
		enc.AddString("origin", e.Origin)
	}
	for key, value := range e.Metadata {
		if err := enc.AddReflected(key, value); err != nil {
			return err
		}
	}
	return nil
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Origin:  origin(),
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// NewDatabaseError reports a failed storage operation such as "insert profile"
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewExternalServiceError reports a failed call to the LLM or image provider
func NewExternalServiceError(service string, cause error) *AppError {
	return NewAppError(
		CodeExternalServiceError,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).WithCause(cause).WithMetadata("service", service)
}

func NewUsernameAlreadyExistsError(username string) *AppError {
	return NewAppError(
		CodeUsernameAlreadyExists,
		"Username already exists",
		"This username is already taken",
	).WithMetadata("username", username)
}

// NewInvalidCredentialsError does not say whether the username or the
// password was wrong
func NewInvalidCredentialsError() *AppError {
	return NewAppError(CodeInvalidCredentials, "Invalid username or password", "")
}

func NewProfileNotFoundError(username string) *AppError {
	return NewAppError(
		CodeProfileNotFound,
		"Profile not found",
		fmt.Sprintf("No profile is registered under %q", username),
	).WithMetadata("username", username)
}

// Wrap returns err's AppError, or an internal error caused by err
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err's chain holds an AppError with code
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// GetCode extracts the error code from an error, CodeInternal for plain ones
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// origin returns the first caller that is not a constructor in this file
func origin() string {
	var pcs [8]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasSuffix(frame.File, "/pkg/errors/errors.go") {
			return fmt.Sprintf("%s:%d", trimPath(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func trimPath(file string) string {
	if i := strings.Index(file, "/internal/"); i >= 0 {
		return file[i+1:]
	}
	if i := strings.Index(file, "/pkg/"); i >= 0 {
		return file[i+1:]
	}
	return file
}

// ValidationError describes one rejected form field
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	messages := make([]string, len(v))
	for i, err := range v {
		messages[i] = err.Message
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors folds field errors into one AppError whose details
// list every message
func NewValidationErrors(errors []ValidationError) *AppError {
	validationErrs := ValidationErrors(errors)

	return NewAppError(
		CodeValidationFailed,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}
