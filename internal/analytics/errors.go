package analytics

import "fmt"

// UnavailableError reports a failed or timed-out call to the analytics API.
type UnavailableError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("analytics %s unavailable", e.Source)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Unwrap compatibility.
func (e *UnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// RequestError reports a request rejected by client-side validation.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid analytics request (%s): %s", e.Field, e.Reason)
}
