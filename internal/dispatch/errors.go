package dispatch

import (
	"errors"
	"net/http"
)

// ErrNotReady is returned while the session is not Ready. No transport call
// is made.
var ErrNotReady = errors.New("WhatsApp client is not ready")

// ValidationError reports a missing or empty request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Field + ": " + e.Reason
	}
	return "missing required field: " + e.Field
}

// TransportError wraps a failed session call. Its message is the
// underlying error's message, unchanged.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusCode maps an engine error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
