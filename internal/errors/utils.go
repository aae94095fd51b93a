package errors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Wrap wraps an error with additional context, keeping the location and
// section of an existing GuideError.
func Wrap(err error, errType ErrorType, code, message string) *GuideError {
	if err == nil {
		return nil
	}

	var ge *GuideError
	if errors.As(err, &ge) {
		return &GuideError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Cause:    ge,
			Context:  ge.Context,
			Section:  ge.Section,
			FilePath: ge.FilePath,
			Line:     ge.Line,
		}
	}

	return &GuideError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *GuideError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *GuideError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapParse wraps an error as a parse error.
func WrapParse(err error, code, message string) *GuideError {
	return Wrap(err, ErrorTypeParse, code, message)
}

// FormatErrorWithSuggestions formats an error, appending suggestions for
// ValidationError types. Every member of a ValidationErrorCollection is
// formatted in turn.
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var vec *ValidationErrorCollection
	if errors.As(err, &vec) && vec.HasErrors() {
		parts := make([]string, len(vec.Errors))
		for i, ve := range vec.Errors {
			parts[i] = formatValidationError(ve)
		}
		return strings.Join(parts, "\n\n")
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return formatValidationError(ve)
	}

	return err.Error()
}

func formatValidationError(ve ValidationError) string {
	result := ve.Error()
	for i, suggestion := range ve.Suggestions() {
		if i == 0 {
			result += "\n\nSuggestions:"
		}
		result += fmt.Sprintf("\n  • %s", suggestion)
	}
	return result
}

// CollectSuggestions returns the suggestions carried by err's validation
// errors, collection members included, without duplicates.
func CollectSuggestions(err error) []string {
	var members []ValidationError
	var vec *ValidationErrorCollection
	var ve ValidationError
	switch {
	case errors.As(err, &vec):
		members = vec.Errors
	case errors.As(err, &ve):
		members = []ValidationError{ve}
	}

	var out []string
	for _, m := range members {
		for _, s := range m.Suggestions() {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// GetErrorChain returns all errors in the chain from outermost to innermost.
func GetErrorChain(err error) []error {
	var chain []error
	for err != nil {
		chain = append(chain, err)
		err = errors.Unwrap(err)
	}
	return chain
}

// HasErrorCode checks if any error in the chain has the specified code.
func HasErrorCode(err error, code string) bool {
	for _, e := range GetErrorChain(err) {
		if ge, ok := e.(*GuideError); ok && ge.Code == code {
			return true
		}
	}
	return false
}

// CombineErrors combines multiple errors into one. Nil errors are skipped.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, len(nonNil))
	for i, err := range nonNil {
		messages[i] = err.Error()
	}
	return &GuideError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNil)),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
			"errors":      messages,
		},
	}
}
