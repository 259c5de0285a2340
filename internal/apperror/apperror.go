// Package apperror defines the domain errors shared by every layer.
//
// Services and repositories return these; only the HTTP handler layer knows
// which status code each one maps to.
package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("Validation Error")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// NonFieldErrors is the field key used for errors that don't belong to a
// single input field, such as rejected credentials.
const NonFieldErrors = "non_field_errors"

type AppError struct {
	Err     error       // actual error
	Message string      // Human-readable error message
	Field   string      // Optional: first field causing the error
	Fields  FieldErrors // Optional: every invalid field with its messages
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FieldErrors maps an input field name to the messages describing what is
// wrong with it.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Has reports whether field already has at least one message.
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Err returns nil when no field has errors, and an ErrValidation AppError
// otherwise.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return Invalid(fe)
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  FieldErrors{field: {message}},
	}
}

// Invalid wraps a set of per-field messages. Field and Message carry the
// alphabetically first field so single-line consumers (logs, the CLI) still
// get something readable.
func Invalid(fields FieldErrors) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	e := &AppError{Err: ErrValidation, Message: "invalid input", Fields: fields}
	if len(names) > 0 && len(fields[names[0]]) > 0 {
		e.Field = names[0]
		e.Message = fmt.Sprintf("%s: %s", names[0], fields[names[0]][0])
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthenticated returns an AppError for a missing or unusable credential.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// MethodNotAllowed returns an AppError for a verb the resource doesn't serve.
func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Err:     ErrMethodNotAllowed,
		Message: fmt.Sprintf("Method %q not allowed.", method),
	}
}
