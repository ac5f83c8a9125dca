package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sirana/sirana/pkg/apperror"
)

// errorResponse is the envelope returned for every failed request.
type errorResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

// ErrorHandler returns an echo HTTPErrorHandler that maps domain errors to
// status codes: validation 400, not-found 404, conflict 409, unsupported
// input 422, everything else 500. Storage errors are logged with their cause
// but never leak query details to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		resp := errorResponse{Message: "internal server error"}

		var (
			validationErr  *apperror.ValidationError
			notFoundErr    *apperror.NotFoundError
			conflictErr    *apperror.ConflictError
			unsupportedErr *apperror.UnsupportedInputError
			storageErr     *apperror.StorageError
			httpErr        *echo.HTTPError
		)

		switch {
		case errors.As(err, &validationErr):
			status = http.StatusBadRequest
			resp.Message = "validation failed"
			resp.Errors = validationErr.Fields
		case errors.As(err, &notFoundErr):
			status = http.StatusNotFound
			resp.Message = notFoundErr.Error()
		case errors.As(err, &conflictErr):
			status = http.StatusConflict
			resp.Message = conflictErr.Error()
		case errors.As(err, &unsupportedErr):
			status = http.StatusUnprocessableEntity
			resp.Message = unsupportedErr.Error()
		case errors.As(err, &storageErr):
			logger.Error().Err(storageErr).
				Str("path", c.Request().URL.Path).
				Msg("storage failure")
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				resp.Message = msg
			} else {
				resp.Message = http.StatusText(status)
			}
		default:
			logger.Error().Err(err).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, resp)
	}
}
