package manifest

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/Code rather than matching error strings.
type Kind string

const (
	KindDecode     Kind = "Decode"
	KindDateParse  Kind = "DateParse"
	KindClassifier Kind = "Classifier"
	KindInternal   Kind = "Internal"
)

// Error is the structured error type shared by the manifest and summary packages.
//
// Code is a stable identifier (e.g. C2PA-DEC-001, C2PA-DATE-001).
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns a structured error without a cause.
func NewError(kind Kind, code, msg string) error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// WrapError returns a structured error wrapping cause.
func WrapError(kind Kind, code, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, code, msg)
	}
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// CodeOf returns the stable Code for a structured error, or "" if unknown.
func CodeOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
