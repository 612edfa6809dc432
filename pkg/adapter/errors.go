package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout        = errors.New("script timed out")
	ErrOutputTooLarge = errors.New("script output exceeds limit")
	ErrExit           = errors.New("script failed")
	ErrInvalidOutput  = errors.New("script output is not valid json")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoScript       = errors.New("no script configured")
)

// AdapterFailure is returned for every failed script invocation.
// Reason is one of the sentinel errors above, Err the underlying cause (if any).
type AdapterFailure struct {
	Script string
	Reason error
	Err    error
}

func (f *AdapterFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %v", f.Script, f.Reason)
	}
	return fmt.Sprintf("%s: %v: %v", f.Script, f.Reason, f.Err)
}

func (f *AdapterFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Reason}
	}
	return []error{f.Reason, f.Err}
}

func failure(script string, reason, err error) *AdapterFailure {
	return &AdapterFailure{Script: script, Reason: reason, Err: err}
}
