package issues

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies service failures so transports can map them to
// protocol signaling without string matching.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindStorage      ErrorKind = "storage_unavailable"
)

// FieldError describes a single validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed result for every failed service operation. Validation
// failures carry the full list of violated fields, not just the first.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the ErrorKind from an error, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldsOf extracts the field violations from an error, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func invalidInput(fields []FieldError) error {
	return &Error{Kind: KindInvalidInput, Message: "invalid input", Fields: fields}
}

func unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func denied(d Decision) error {
	if d.Kind == KindUnauthorized {
		return unauthorized(d.Reason)
	}
	return forbidden(d.Reason)
}

func notFound(id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("issue %d not found", id)}
}

func storage(op string, err error) error {
	return &Error{Kind: KindStorage, Message: op + ": storage unavailable", cause: err}
}
