package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/feishubridge/internal/channel/adapters/feishu"
	"github.com/memohai/feishubridge/internal/media"
)

// ErrorResponse is the body echo writes for an *echo.HTTPError.
type ErrorResponse struct {
	Message string `json:"message"`
}

// statusFor maps the adapter error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feishu.ErrAccountNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, feishu.ErrInvalidTarget),
		errors.Is(err, feishu.ErrNoMediaSource),
		errors.Is(err, feishu.ErrLocalFileUnreadable):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrAssetTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, feishu.ErrRemoteOperationFailed),
		errors.Is(err, feishu.ErrFetchFailed),
		errors.Is(err, feishu.ErrMissingResultKey),
		errors.Is(err, media.ErrUnrecognizedResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(statusFor(err), err.Error())
}
