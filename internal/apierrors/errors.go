// Package apierrors defines the error taxonomy shared by every router and the
// single place where errors are turned into HTTP responses.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Code string

const (
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeInternal        Code = "INTERNAL_SERVER_ERROR"
)

// Status maps a code to its HTTP status.
func (c Code) Status() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is raised at the point of detection and propagates unmodified to the
// request boundary.
type Error struct {
	Code       Code
	Message    string
	RetryAfter time.Duration
	Fields     map[string]string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "user not authenticated"
	}
	return &Error{Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return &Error{Code: CodeForbidden, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func TooManyRequests(retryAfter time.Duration) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{
		Code:       CodeTooManyRequests,
		Message:    "rate limit exceeded, please try again later",
		RetryAfter: retryAfter,
	}
}

func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

// Internal wraps an unexpected failure. The message names the failed operation;
// the wrapped error is only exposed outside production.
func Internal(operation string, err error) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf("failed to %s", operation), Err: err}
}

// As extracts an *Error from err. Anything else is reported as an internal error.
func As(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Code: CodeInternal, Message: "internal server error", Err: err}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
