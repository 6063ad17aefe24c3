// Package errs 定义了携带 HTTP 状态码的业务错误。
package errs

import (
	"errors"
	"net/http"
)

// Error 是带有业务码与 HTTP 状态码的错误，可以包裹底层原因。
type Error struct {
	Code       int
	HTTPStatus int
	Message    string
	cause      error
}

// New 创建一个新的业务错误。
func New(code int, httpStatus int, message string) *Error {
	return &Error{Code: code, HTTPStatus: httpStatus, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 返回底层原因。
func (e *Error) Unwrap() error {
	return e.cause
}

// Is 以业务码判等，使包裹后的错误仍能与哨兵错误匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap 返回一个带有底层原因的副本，哨兵错误本身不会被修改。
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, HTTPStatus: e.HTTPStatus, Message: e.Message, cause: cause}
}

// Error codes
var (
	ErrQuestionEmpty         = New(40001, http.StatusBadRequest, "question must not be empty")
	ErrInvalidSession        = New(40101, http.StatusUnauthorized, "invalid or expired session token")
	ErrNoBookingData         = New(40401, http.StatusNotFound, "No data found")
	ErrDataSourceUnavailable = New(50001, http.StatusInternalServerError, "data source unavailable")
	ErrModelCallFailed       = New(50002, http.StatusInternalServerError, "model call failed")
	ErrIndexBuildFailed      = New(50003, http.StatusInternalServerError, "index build failed")
	ErrServiceNotReady       = New(50301, http.StatusServiceUnavailable, "Service not initialized")
)

// StatusOf 返回错误对应的 HTTP 状态码，未知错误为 500。
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}
