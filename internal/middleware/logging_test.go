package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   echo.HandlerFunc
		wantCode  int
		wantLevel string
	}{
		{"ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, http.StatusOK, "INFO"},
		{"http error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadRequest, "bad") }, http.StatusBadRequest, "INFO"},
		{"server error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway) }, http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			e := echo.New()
			e.Use(RequestID())
			e.Use(RequestLogger(logger))
			e.GET("/test", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.wantCode) {
				t.Errorf("logged status = %v, want %d", entry["status"], tt.wantCode)
			}
			if entry["request_id"] == "" || entry["request_id"] == nil {
				t.Error("request_id not logged")
			}
		})
	}
}
