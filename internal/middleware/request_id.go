package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID returns Echo's request-ID middleware with UUIDv4 identifiers.
// An inbound X-Request-Id header is kept.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// GetRequestID returns the request ID assigned to the response, or a fresh
// UUID when the RequestID middleware is not installed.
func GetRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}
