// Package apperror defines the application-level error taxonomy.
//
// Services return these typed errors; the HTTP layer maps them to status
// codes in one place (handler/response.go). Raw store or codec errors must
// never reach a response — they are converted at the service boundary.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers every credential failure: wrong password,
	// unknown identifier, missing OAuth identity. Callers must not be able
	// to tell which check failed (account-enumeration safety).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicate is returned when sign-up collides with an existing
	// user on name, email, or phone number.
	ErrDuplicate = errors.New("duplicate")

	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// AppError carries a sentinel kind plus a human-readable message.
// The message is safe to surface to clients; it never contains
// internals such as SQL text or file paths.
type AppError struct {
	Err     error  // sentinel kind, matched with errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthorized returns the generic credential-failure error. The message is
// deliberately constant so a wrong password and an unknown user are
// indistinguishable from the outside.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "unauthorized",
	}
}

// Duplicate reports a sign-up uniqueness collision.
func Duplicate(message string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: message,
	}
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
	}
}

// Conflict reports a store-side creation failure that is not a uniqueness
// collision (e.g. the insert itself failed).
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}
