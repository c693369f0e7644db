package handlers

import (
	"net/http"
	"time"

	"scrapeforge/internal/logging"
	"scrapeforge/pkg/models"

	"github.com/labstack/echo/v4"
)

var startTime = time.Now()

// HealthHandler reports basic liveness.
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("health check requested")

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
		Checks:    map[string]string{"api": "ok"},
	})
}

// ReadinessHandler reports whether the process can accept new jobs.
func ReadinessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
		Checks:    map[string]string{"api": "ok", "orchestrator": "ok"},
	})
}

// LivenessHandler is the bare process-alive probe.
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	})
}
