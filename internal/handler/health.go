package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shapestone/shape-message/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns server status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      string(h.version),
		"upload_dir":   h.cfg.Upload.Dir,
		"upload_keep":  h.cfg.Upload.Keep,
		"metrics_path": h.metricsPath(),
	})
}

func (h *HealthHandler) metricsPath() string {
	if !h.cfg.Metrics.Enabled {
		return ""
	}
	return h.cfg.Metrics.Path
}
