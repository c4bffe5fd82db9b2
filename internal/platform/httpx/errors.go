// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// NotFoundMessage is the body sent when a report has no rows.
const NotFoundMessage = "No se encontraron resultados"

// StatusError is the only error shape the HTTP boundary renders with a body.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// NewStatusError builds a StatusError.
func NewStatusError(status int, message string, err error) *StatusError {
	return &StatusError{Status: status, Message: message, Err: err}
}

// ToStatus maps err onto a StatusError. Unknown errors become a bare 500.
func ToStatus(err error) *StatusError {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, ErrNotFound):
		return &StatusError{Status: http.StatusNotFound, Message: NotFoundMessage, Err: err}
	case errors.Is(err, ErrValidation):
		return &StatusError{Status: http.StatusBadRequest, Message: "Parámetros no válidos", Err: err}
	default:
		return &StatusError{Status: http.StatusInternalServerError, Err: err}
	}
}

// RespondError writes err as plain text. Internal errors carry no body.
func RespondError(w http.ResponseWriter, err error) {
	se := ToStatus(err)
	if se.Message == "" {
		w.WriteHeader(se.Status)
		return
	}
	http.Error(w, se.Message, se.Status)
}

// RespondProblem writes err as RFC7807 problem details.
func RespondProblem(w http.ResponseWriter, err error) {
	se := ToStatus(err)
	title := http.StatusText(se.Status)
	Problem(w, se.Status, title, se.Message)
}
