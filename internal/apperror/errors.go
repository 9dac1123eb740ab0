// Package apperror defines the error type that handlers return when a
// request must stop with a specific status. The Echo error handler turns an
// AppError into a halt page or a JSON body; anything else becomes a 500
// with a generic message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// internalMessage is shown to the client for every 500.
const internalMessage = "An unexpected error occurred. Please try again."

// errorTypes maps status codes to the machine-readable Type field.
var errorTypes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusUnprocessableEntity: "validation_error",
	http.StatusTooManyRequests:     "rate_limited",
	http.StatusInternalServerError: "internal_error",
}

// AppError carries a status code and a message that is safe to show to the
// client. Internal is logged, never rendered.
type AppError struct {
	Code     int    `json:"-"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Internal }

func newError(code int, message string) *AppError {
	return &AppError{Code: code, Type: errorTypes[code], Message: message}
}

func NewBadRequest(message string) *AppError   { return newError(http.StatusBadRequest, message) }
func NewUnauthorized(message string) *AppError { return newError(http.StatusUnauthorized, message) }
func NewNotFound(message string) *AppError     { return newError(http.StatusNotFound, message) }

// NewForbidden is the halt used for failed nonce checks, bad login links
// and exhausted attempts.
func NewForbidden(message string) *AppError { return newError(http.StatusForbidden, message) }

// NewValidation is a 422 for form input the admin screens re-render with.
func NewValidation(message string) *AppError {
	return newError(http.StatusUnprocessableEntity, message)
}

// NewTooManyRequests is a 429, used by the gate's issuance limit and the
// in-memory throttle.
func NewTooManyRequests(message string) *AppError {
	return newError(http.StatusTooManyRequests, message)
}

// NewInternal hides err behind a generic 500 message.
func NewInternal(err error) *AppError {
	e := newError(http.StatusInternalServerError, internalMessage)
	e.Internal = err
	return e
}

// SafeMessage returns the AppError message in err's chain, or a generic
// message for any other error so driver and Redis errors never leak.
func SafeMessage(err error) string {
	if appErr, ok := as(err); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the AppError status in err's chain, or 500.
func SafeCode(err error) int {
	if appErr, ok := as(err); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is (or wraps) a 404 AppError.
func IsNotFound(err error) bool {
	appErr, ok := as(err)
	return ok && appErr.Code == http.StatusNotFound
}

func as(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
