package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// NewErrorHandler builds the central echo error handler. Handler errors carry
// their own status via echo.HTTPError; anything else is an unexpected failure
// and surfaces as a generic 500 so internals never leak to clients. Server
// errors are logged with request context.
func NewErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := "internal server error"

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}

		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Int("status", code).
				Msg("request failed")
		}

		if err := c.JSON(code, map[string]string{"message": msg}); err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}
