/*
Package unwrap provides a set of proxy methods to process invocation results.

Functions implemented there are intended to be used as wrappers for other
functions that return (*result.Invoke, error) pair. These functions will
check for error, check for the invocation outcome, extract the return value
and decode it (if everything is OK) and then return a result or error.
They're mostly useful for other higher-level contract-specific packages.
*/
package unwrap

import (
	"errors"
	"fmt"

	"github.com/BukiOffor/registry/pkg/ccd"
	"github.com/BukiOffor/registry/pkg/ccdrpc/result"
	"github.com/BukiOffor/registry/pkg/schema"
)

// ErrMissingReturnValue is returned when the node doesn't provide a return
// value for the invocation. V1 contracts always return something, so it's a
// protocol mismatch.
var ErrMissingReturnValue = errors.New("return value is missing")

// ErrNotFailed is returned by Rejection for successful invocations.
var ErrNotFailed = errors.New("invocation didn't fail")

// FailedError is returned for failed invocations, it carries the whole
// result so that the caller can decode the contract error from it.
type FailedError struct {
	Result *result.Invoke
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	if e.Result.Reason == nil {
		return "invocation failed"
	}
	return fmt.Sprintf("invocation failed: %s", e.Result.Reason.Error())
}

// Unwrap returns the reject reason.
func (e *FailedError) Unwrap() error {
	if e.Result.Reason == nil {
		return nil
	}
	return e.Result.Reason
}

func checkResOK(r *result.Invoke, err error) error {
	if err != nil {
		return err
	}
	if r == nil {
		return errors.New("nil invocation result")
	}
	if r.Tag != result.InvokeSuccess {
		return &FailedError{Result: r}
	}
	return nil
}

// ReturnValue expects successful invocation and returns its return value.
func ReturnValue(r *result.Invoke, err error) ([]byte, error) {
	if err := checkResOK(r, err); err != nil {
		return nil, err
	}
	if r.ReturnValue == nil {
		return nil, ErrMissingReturnValue
	}
	return r.ReturnValue, nil
}

// UsedEnergy expects successful invocation and returns the energy it used.
func UsedEnergy(r *result.Invoke, err error) (ccd.Energy, error) {
	if err := checkResOK(r, err); err != nil {
		return 0, err
	}
	return r.UsedEnergy, nil
}

// Rejection expects failed invocation and returns the value the contract
// rejected with (its serialized error).
func Rejection(r *result.Invoke, err error) ([]byte, error) {
	err = checkResOK(r, err)
	if err == nil {
		return nil, ErrNotFailed
	}
	var failed *FailedError
	if !errors.As(err, &failed) {
		return nil, err
	}
	if r.ReturnValue == nil {
		return nil, ErrMissingReturnValue
	}
	return r.ReturnValue, nil
}

// Schema expects successful invocation and decodes its return value with the
// given schema type into out (using JSON representation of the value).
func Schema(t schema.Type, out any, r *result.Invoke, err error) error {
	rv, err := ReturnValue(r, err)
	if err != nil {
		return err
	}
	if err := schema.DecodeJSON(t, rv, out); err != nil {
		return fmt.Errorf("return value: %w", err)
	}
	return nil
}

// String expects successful invocation returning a String (with u32 length
// prefix) and returns it.
func String(r *result.Invoke, err error) (string, error) {
	var s string
	return s, Schema(stringType, &s, r, err)
}

var stringType = schema.Type{Tag: schema.TagString, Size: schema.SizeU32}
