package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAnchor     ErrorType = "anchor"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// GuideError is a structured error type with context.
type GuideError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	Section  string
	FilePath string
	Line     int
}

// Error implements the error interface.
func (e *GuideError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Section != "" {
		parts = append(parts, "section:"+e.Section)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *GuideError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *GuideError) Is(target error) bool {
	var t *GuideError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *GuideError) WithContext(key string, value interface{}) *GuideError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *GuideError) WithLocation(filePath string, line int) *GuideError {
	e.FilePath = filePath
	e.Line = line

	return e
}

// WithSection adds section context.
func (e *GuideError) WithSection(section string) *GuideError {
	e.Section = section

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *GuideError {
	return &GuideError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewParseError creates a parse error.
func NewParseError(code, message string, cause error) *GuideError {
	return &GuideError{
		Type:    ErrorTypeParse,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *GuideError {
	return &GuideError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *GuideError {
	return &GuideError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *GuideError {
	return &GuideError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes.
const (
	ErrCodeDuplicateAnchor  = "ERR_DUPLICATE_ANCHOR"
	ErrCodeAnchorNotFound   = "ERR_ANCHOR_NOT_FOUND"
	ErrCodeEmptyAnchor      = "ERR_EMPTY_ANCHOR"
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeParseFailed      = "ERR_PARSE_FAILED"
	ErrCodeNotConfig        = "ERR_NOT_CONFIG_EXEMPLAR"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeOriginDenied     = "ERR_ORIGIN_DENIED"
)

// ErrDuplicateAnchor reports two sections deriving the same slug.
func ErrDuplicateAnchor(slug, first, second string) *GuideError {
	return &GuideError{
		Type:    ErrorTypeAnchor,
		Code:    ErrCodeDuplicateAnchor,
		Message: fmt.Sprintf("duplicate anchor %q: %q and %q", slug, first, second),
		Section: second,
	}
}

// ErrAnchorNotFound reports a slug that no section derives.
func ErrAnchorNotFound(slug string) *GuideError {
	return &GuideError{
		Type:    ErrorTypeAnchor,
		Code:    ErrCodeAnchorNotFound,
		Message: "anchor not found: #" + slug,
	}
}

// ErrEmptyAnchor reports a heading that derives no slug at all.
func ErrEmptyAnchor(heading string) *GuideError {
	return &GuideError{
		Type:    ErrorTypeAnchor,
		Code:    ErrCodeEmptyAnchor,
		Message: fmt.Sprintf("heading %q derives an empty anchor", heading),
		Section: heading,
	}
}

// ErrInvalidPath reports a path rejected for reason.
func ErrInvalidPath(path, reason string) *GuideError {
	return NewValidationError(ErrCodeInvalidPath, fmt.Sprintf("%s: %s", reason, path)).
		WithContext("path", path)
}

// IsNotFound reports whether err, or any error it wraps, is an unresolvable
// anchor.
func IsNotFound(err error) bool {
	return HasErrorCode(err, ErrCodeAnchorNotFound)
}

// IsDuplicateAnchor reports whether err, or any error it wraps, is a slug
// collision.
func IsDuplicateAnchor(err error) bool {
	return HasErrorCode(err, ErrCodeDuplicateAnchor)
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ge *GuideError
	if !errors.As(err, &ge) {
		var fields []interface{}
		if suggestions := CollectSuggestions(err); len(suggestions) > 0 {
			fields = append(fields, "suggestions", suggestions)
		}
		h.logger.Error(ctx, err, "Unhandled error occurred", fields...)
		return
	}

	switch ge.Type {
	case ErrorTypeValidation, ErrorTypeAnchor:
		h.logger.Warn(ctx, ge, "Validation error occurred",
			"type", ge.Type,
			"code", ge.Code,
			"section", ge.Section,
			"file", ge.FilePath)
	default:
		h.logger.Error(ctx, ge, "Error occurred",
			"type", ge.Type,
			"code", ge.Code,
			"section", ge.Section)
	}
}

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// Add adds a validation error to the collection.
func (vec *ValidationErrorCollection) Add(err ValidationError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Add(NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}
