package tools

import (
	"fmt"
	"strings"
)

// ValidationError lists required parameters that are missing.
type ValidationError struct {
	Tool   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required parameters: %s", e.Tool, strings.Join(e.Fields, ", "))
}

// EmptyResultError reports a successful call that returned nothing usable.
// Message is shown to the user as is.
type EmptyResultError struct {
	Message string
}

func (e *EmptyResultError) Error() string { return e.Message }

// UpstreamError wraps a failed sub-call of a tool. Step names the call in
// user-facing messages.
type UpstreamError struct {
	Step  string
	Cause error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func upstream(step string, err error) error {
	return &UpstreamError{Step: step, Cause: err}
}
