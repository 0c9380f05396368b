package payments

import (
	"errors"
	"fmt"
)

var (
	// ErrDisabled is returned when no processor credentials are configured.
	ErrDisabled = errors.New("payments are disabled")
	ErrNetwork  = errors.New("payment processor unreachable")
	ErrRejected = errors.New("payment processor rejected the request")
)

type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status code %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}
