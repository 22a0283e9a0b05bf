// Package apperror defines the error categories surfaced to callers of the
// curation engine. Errors are matched by kind with errors.Is, so a message
// or wrapped cause can be attached without losing the category.
package apperror

import "fmt"

// Kind identifies an error category.
type Kind string

// Error kinds.
const (
	KindNotFound      Kind = "not_found"
	KindBadInput      Kind = "bad_input"
	KindDataIntegrity Kind = "data_integrity"
)

// Error is a categorized error with an optional message and cause.
type Error struct {
	Kind     Kind
	Message  string
	Internal error
}

// Sentinel errors, one per kind.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrBadInput      = &Error{Kind: KindBadInput, Message: "bad input"}
	ErrDataIntegrity = &Error{Kind: KindDataIntegrity, Message: "data integrity failure"}
)

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithMessage returns a copy of e with the given message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Internal: e.Internal}
}

// WithMessagef returns a copy of e with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithInternal returns a copy of e wrapping err.
func (e *Error) WithInternal(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Internal: err}
}

// NotFound returns a NotFound error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return ErrNotFound.WithMessagef(format, args...)
}

// BadInput returns a BadInput error with a formatted message.
func BadInput(format string, args ...any) *Error {
	return ErrBadInput.WithMessagef(format, args...)
}

// DataIntegrity returns a DataIntegrity error wrapping err.
func DataIntegrity(err error, format string, args ...any) *Error {
	return ErrDataIntegrity.WithMessagef(format, args...).WithInternal(err)
}
