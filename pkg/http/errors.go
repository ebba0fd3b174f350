package http

import (
	"errors"
	"fmt"
	"net/http"

	"AttackDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// MethodNotAllowedError creates a 405 error.
func MethodNotAllowedError(message string) *AppError {
	return NewAppError("ERR_METHOD_NOT_ALLOWED", "", message, http.StatusMethodNotAllowed)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// toAppError maps any error reaching the router onto an AppError. Errors
// that are neither AppError nor echo.HTTPError become a bare 500 so that
// internal detail never reaches the client.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		switch he.Code {
		case http.StatusNotFound:
			return NotFoundError(msg).WithError(err)
		case http.StatusMethodNotAllowed:
			return MethodNotAllowedError(msg).WithError(err)
		}
		return NewAppError("ERR_HTTP", "", msg, he.Code).WithError(err)
	}

	return InternalError("Something went wrong").WithError(err)
}

// NewErrorHandler renders router errors, unknown routes and recovered panics
// in the API envelope.
func NewErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			log.Error("request error",
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(appErr.Status)
		} else {
			werr = AppErrorResponse(c, appErr)
		}
		if werr != nil {
			log.Warn("write error response failed", logger.Error(werr))
		}
	}
}
