package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string // Error code (e.g., INVALID_INPUT)
	Message    string // User-facing message
	HTTPStatus int
	Err        error // Wrapped cause (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError without wrapping.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap returns a copy of the sentinel carrying cause. errors.Is(result, sentinel) holds.
func Wrap(sentinel *AppError, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &wrapped{AppError: &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		HTTPStatus: sentinel.HTTPStatus,
		Err:        cause,
	}, sentinel: sentinel}
}

type wrapped struct {
	*AppError
	sentinel *AppError
}

func (w *wrapped) Is(target error) bool {
	return target == error(w.sentinel)
}

// Unwrap exposes both the cause and the AppError so errors.As finds either.
func (w *wrapped) Unwrap() []error {
	return []error{w.AppError, w.AppError.Err}
}

// HTTPError is the transport view of an error.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func ToHTTP(err error) HTTPError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		var details any
		if appErr.Err != nil {
			details = appErr.Err.Error()
		}
		return HTTPError{
			Status:  appErr.HTTPStatus,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		}
	}
	return HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "internal server error",
	}
}

// CodeOf returns the application code of err, or CodeInternalError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// IsRetryable reports whether the whole operation may be retried by the caller.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeReservationConflict
}
