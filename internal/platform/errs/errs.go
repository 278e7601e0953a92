// Package errs defines the service error taxonomy. Services return these
// typed errors; HTTP handlers translate them with Status.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindValidation
	KindTxAbort
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindTxAbort:
		return "tx_abort"
	}
	return "unknown"
}

// Error is a typed service error. Meta carries machine-readable detail the
// caller may need to act on (e.g. the department blocking an admission).
type Error struct {
	Kind Kind
	Msg  string
	Meta map[string]string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// TxAbort wraps an underlying store failure that rolled the operation back.
func TxAbort(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTxAbort, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithMeta attaches machine-readable detail and returns the same error.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string)
	}
	e.Meta[key] = value
	return e
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Status maps a service error to an HTTP status code.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindTxAbort:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Payload renders an error as a JSON-ready body. Meta keys are merged in so
// callers can redirect instead of retrying blindly.
func Payload(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var e *Error
	if errors.As(err, &e) {
		body["error"] = e.Msg
		body["kind"] = e.Kind.String()
		for k, v := range e.Meta {
			body[k] = v
		}
	}
	return body
}
