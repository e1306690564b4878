package reader

import "errors"

// Kind classifies a read failure.
type Kind string

const (
	KindMissingCAS Kind = "MissingCAS"
	KindInvalidRef Kind = "InvalidRef"
	KindNotFound   Kind = "NotFound"
	KindIntegrity  Kind = "Integrity"
	KindDecode     Kind = "Decode"
	KindInternal   Kind = "Internal"
)

// Error is a read failure for one asset reference.
type Error struct {
	Kind    Kind
	Ref     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "reader: " + e.Message
	if e.Ref != "" {
		msg += " (" + e.Ref + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf returns the Kind of a read failure, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
