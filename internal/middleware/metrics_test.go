package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/shapestone/shape-message/internal/metrics"
)

// requestLabels returns the label sets recorded on the requests counter.
func requestLabels(t *testing.T, m *metrics.Metrics) []map[string]string {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var out []map[string]string
	for _, f := range families {
		if f.GetName() != "shape_message_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, labels)
		}
	}
	return out
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		handler    echo.HandlerFunc
		wantMethod string
		wantStatus string // empty skips the check
		wantPrefix string
	}{
		{"ok", http.MethodGet, "/inspect/a", func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		}, "GET", "200", "/inspect"},
		{"http error", http.MethodPost, "/inspect/a", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusBadRequest, "bad")
		}, "POST", "400", "/inspect"},
		{"unknown method", "XYZZY", "/inspect/a", func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		}, "other", "", "/inspect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			e := echo.New()
			e.Use(MetricsMiddleware(m))
			e.Any("/inspect/*", tt.handler)

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			labels := requestLabels(t, m)
			if len(labels) != 1 {
				t.Fatalf("recorded %d label sets, want 1", len(labels))
			}
			got := labels[0]
			statusOK := tt.wantStatus == "" || got["status_code"] == tt.wantStatus
			if got["method"] != tt.wantMethod || !statusOK || got["path_prefix"] != tt.wantPrefix {
				t.Errorf("labels = %v, want method=%s status_code=%s path_prefix=%s",
					got, tt.wantMethod, tt.wantStatus, tt.wantPrefix)
			}
		})
	}
}

func TestMetricsMiddleware_RouterNotFound(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	labels := requestLabels(t, m)
	if len(labels) != 1 || labels[0]["status_code"] != "404" || labels[0]["path_prefix"] != "other" {
		t.Errorf("labels = %v, want status_code=404 path_prefix=other", labels)
	}
}
