package provisioning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrMalformedResponse = errors.New("malformed response from provisioning tool")
	ErrTransient         = errors.New("provisioning tool unavailable")
	ErrRejected          = errors.New("provisioning tool rejected the request")
)

// Error keeps the raw tool output next to the classified kind. Admin flows
// show Output verbatim; customer flows must only show a fixed message.
type Error struct {
	Kind   error
	Op     string
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Output != "" {
		msg += ": " + e.Output
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

// AdminMessage is the text shown to trusted operators.
func AdminMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		switch {
		case pe.Kind == ErrMalformedResponse:
			return "Failed to parse the provisioning tool output."
		case pe.Output != "":
			return pe.Output
		}
	}
	return err.Error()
}

var notFoundMarkers = []string{"not found", "does not exist", "no such user"}

// classify turns a failed CLI invocation into a typed error.
func classify(op, output string, err error) error {
	lower := strings.ToLower(output)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return &Error{Kind: ErrNotFound, Op: op, Output: output, Err: err}
		}
	}
	return &Error{Kind: ErrRejected, Op: op, Output: output, Err: err}
}

// looksLikeFailure catches tools that print an error but still exit 0.
func looksLikeFailure(output string) bool {
	trimmed := strings.TrimSpace(output)
	return strings.HasPrefix(trimmed, "Error") || strings.HasPrefix(trimmed, "Invalid") ||
		strings.Contains(trimmed, "\nError")
}
