package ccdrpc

import (
	"errors"
	"fmt"
)

// Error represents JSON-RPC 2.0 error returned by the node proxy.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 error codes and the ones used by the proxy.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603
	// NotFoundCode is returned when the requested instance, module, block or
	// account doesn't exist.
	NotFoundCode = -100
	// RejectedCode is returned for transactions the node didn't accept.
	RejectedCode = -500
)

var (
	// ErrInvalidParams represents a generic "invalid params" error.
	ErrInvalidParams = NewError(InvalidParamsCode, "Invalid Params", "")
	// ErrNotFound is returned for missing on-chain entities.
	ErrNotFound = NewError(NotFoundCode, "Not found", "")
	// ErrRejected is returned for rejected transactions.
	ErrRejected = NewError(RejectedCode, "Transaction rejected", "")
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, message string, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one, only codes are
// compared.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WrapErrorWithData returns copy of the given error with the specified data.
// It does not modify the source error.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.Message, data)
}
