// Package handler holds the Echo handlers of the inspection server.
package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shapestone/shape-message/internal/config"
	"github.com/shapestone/shape-message/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, inspect *InspectHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	e.Any("/inspect", inspect.Handle)
	e.Any("/inspect/*", inspect.Handle)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
