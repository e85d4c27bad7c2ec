package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auth-gateway/internal/config"
	"auth-gateway/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Paths
// outside these routes fall through to Echo's default 404.
func RegisterRoutes(e *echo.Echo, authH *AuthHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	e.Match([]string{http.MethodGet, http.MethodPost}, RoutePrefix+"/*", authH.Handle)
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}
