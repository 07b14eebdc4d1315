package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDecoding   ErrorType = "decoding"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external_api"
	ErrorTypeInvariant  ErrorType = "invariant"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is reports a match on type and code, so predefined errors work as sentinels.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext returns a copy of the error carrying an extra key.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	clone := *e
	clone.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	clone.Context[key] = value
	return &clone
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Source:  caller(2),
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: err,
		Source:   caller(2),
		Context:  make(map[string]interface{}),
	}
}

func caller(skip int) string {
	_, file, line, _ := runtime.Caller(skip)
	return fmt.Sprintf("%s:%d", file, line)
}

// IsType reports whether any error in err's chain is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsValidation reports whether err is a construction or input validation failure.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsDecoding reports whether err is a persisted-data decoding failure.
func IsDecoding(err error) bool {
	return IsType(err, ErrorTypeDecoding)
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.WarnContext(ctx, "Validation error", err.LogFields()...)
	case ErrorTypeDecoding:
		h.logger.WarnContext(ctx, "Decoding error", err.LogFields()...)
	case ErrorTypeDatabase, ErrorTypeExternal:
		h.logger.ErrorContext(ctx, "Storage error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Application error", err.LogFields()...)
	}
}

// LogAndReturn logs an error and returns it
func (h *Handler) LogAndReturn(ctx context.Context, err error) error {
	h.Handle(ctx, err)
	return err
}

// Predefined errors
var (
	ErrMalformedRecord  = New(ErrorTypeDecoding, "MALFORMED_RECORD", "Persisted record could not be decoded")
	ErrUserNotFound     = New(ErrorTypeDatabase, "USER_NOT_FOUND", "User not found")
	ErrHistoryNotFound  = New(ErrorTypeDatabase, "HISTORY_NOT_FOUND", "No stored override history")
	ErrPresetNotFound   = New(ErrorTypeDatabase, "PRESET_NOT_FOUND", "Preset not found")
	ErrOverlappingState = New(ErrorTypeInvariant, "OVERLAPPING_OVERRIDES", "Resolved overrides overlap")
)

// NewValidationError reports invalid caller-supplied values.
func NewValidationError(code, message string) *AppError {
	e := New(ErrorTypeValidation, code, message)
	e.Source = caller(2)
	return e
}

// NewDecodingError reports a missing or mistyped field in a persisted record.
func NewDecodingError(field, message string) *AppError {
	e := New(ErrorTypeDecoding, "MALFORMED_RECORD", message).WithContext("field", field)
	e.Source = caller(2)
	return e
}

func NewDatabaseError(err error) *AppError {
	return Wrap(err, ErrorTypeDatabase, "DB_ERROR", "Database operation failed")
}
