package fixture

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fixture errors.
type ErrorCode string

const (
	// CodeInvalidArgument indicates a malformed request: nil item list, blank
	// template name, non-positive count or a missing required parameter.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeInvalidState indicates a resolved template is missing a required
	// collaborator (data factory, loader or deleter).
	CodeInvalidState ErrorCode = "INVALID_STATE"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument}
	ErrInvalidState    = &Error{Code: CodeInvalidState}
)

// Error is returned for every rule the engine enforces itself.
// Failures raised by user-supplied factories, loaders and deleters are not
// converted into Error; they are wrapped and returned as-is.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message names the violated rule.
	Message string

	// Template is the implicated template name, if any.
	Template string

	// Index is the position of the offending request item, or -1.
	Index int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s: %s (template=%s)", e.Code, e.Message, e.Template)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

func invalidArgument(index int, template, format string, args ...any) *Error {
	return &Error{
		Code:     CodeInvalidArgument,
		Message:  fmt.Sprintf(format, args...),
		Template: template,
		Index:    index,
	}
}

func invalidState(template, format string, args ...any) *Error {
	return &Error{
		Code:     CodeInvalidState,
		Message:  fmt.Sprintf(format, args...),
		Template: template,
		Index:    -1,
	}
}

// InvalidArgument builds an INVALID_ARGUMENT error not tied to a request item.
// Used by collaborators (catalog, adapters) that enforce their own argument rules.
func InvalidArgument(format string, args ...any) error {
	return invalidArgument(-1, "", format, args...)
}

// InvalidState builds an INVALID_STATE error for the given template.
func InvalidState(template, format string, args ...any) error {
	return invalidState(template, format, args...)
}

// IsInvalidArgument returns true if err is, or wraps, an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == CodeInvalidArgument
	}
	return false
}

// IsInvalidState returns true if err is, or wraps, an INVALID_STATE error.
func IsInvalidState(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == CodeInvalidState
	}
	return false
}
