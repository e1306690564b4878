package model

import (
	"errors"
	"fmt"

	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/reader"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidCID     ErrorCode = "INVALID_CID"
	ErrMissingCAS     ErrorCode = "MISSING_CAS"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrCIDMismatch    ErrorCode = "CID_MISMATCH"
	ErrDecode         ErrorCode = "DECODE"
	ErrDateParse      ErrorCode = "DATE_PARSE"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// AsCodedError maps any error onto the boundary error codes.
func AsCodedError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	switch reader.KindOf(err) {
	case reader.KindMissingCAS:
		return NewError(ErrMissingCAS, err.Error())
	case reader.KindInvalidRef:
		return NewError(ErrInvalidCID, err.Error())
	case reader.KindNotFound:
		return NewError(ErrNotFound, err.Error())
	case reader.KindIntegrity:
		return NewError(ErrCIDMismatch, err.Error())
	case reader.KindDecode:
		return NewError(ErrDecode, err.Error())
	}
	switch {
	case manifest.IsKind(err, manifest.KindDateParse):
		return NewError(ErrDateParse, err.Error())
	case manifest.IsKind(err, manifest.KindDecode):
		return NewError(ErrDecode, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
