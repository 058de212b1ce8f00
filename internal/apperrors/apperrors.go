package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by the service layer and the request layer.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientFunds is a BadRequest specialization: errors.Is(err, ErrBadRequest) holds.
	ErrInsufficientFunds = fmt.Errorf("insufficient funds: %w", ErrBadRequest)
)

// NotFound returns an error of kind ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrNotFound}
}

// Forbidden returns an error of kind ErrForbidden with a formatted message.
func Forbidden(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrForbidden}
}

// BadRequest returns an error of kind ErrBadRequest with a formatted message.
func BadRequest(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrBadRequest}
}

// InsufficientFunds returns an error of kind ErrInsufficientFunds with a formatted message.
func InsufficientFunds(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrInsufficientFunds}
}

// Unauthorized returns an error of kind ErrUnauthorized with a formatted message.
func Unauthorized(format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: ErrUnauthorized}
}

// kindError keeps the user-facing message separate from the kind sentinel.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// HTTPStatus maps an error to the status code the request layer responds with.
// InsufficientFunds is checked before BadRequest since it wraps it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsInternal reports whether err falls outside the known kinds.
func IsInternal(err error) bool {
	return err != nil && HTTPStatus(err) == http.StatusInternalServerError
}
