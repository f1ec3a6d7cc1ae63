package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRequestID_GeneratesUUID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())

	var seen string
	e.GET("/test", func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	id := rec.Header().Get(echo.HeaderXRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-Id = %q is not a UUID: %v", id, err)
	}
	if seen != id {
		t.Errorf("GetRequestID() = %q, want %q", seen, id)
	}
}

func TestRequestID_KeepsInbound(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/test", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderXRequestID); got != "upstream-id" {
		t.Errorf("X-Request-Id = %q, want %q", got, "upstream-id")
	}
}

func TestGetRequestID_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", http.NoBody), httptest.NewRecorder())

	if _, err := uuid.Parse(GetRequestID(c)); err != nil {
		t.Errorf("GetRequestID() fallback is not a UUID: %v", err)
	}
}
