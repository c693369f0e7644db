package routes

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"scrapeforge/internal/api/handlers"
	"scrapeforge/internal/api/middleware"
	"scrapeforge/internal/config"
)

// SetupRoutes configures all API routes.
func SetupRoutes(e *echo.Echo, cfg *config.Config, jobsHandler *handlers.JobsHandler) {
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	health := e.Group("/health")
	health.GET("", handlers.HealthHandler)
	health.GET("/ready", handlers.ReadinessHandler)
	health.GET("/live", handlers.LivenessHandler)

	v1 := e.Group("/api/v1")
	jobs := v1.Group("/jobs")
	jobs.POST("", jobsHandler.Create)
	jobs.GET("", jobsHandler.List)
	jobs.GET("/:id", jobsHandler.Status)
	jobs.POST("/:id/start", jobsHandler.Start)
	jobs.POST("/:id/resume", jobsHandler.Resume)
	jobs.POST("/:id/pause", jobsHandler.Pause)
	jobs.POST("/:id/stop", jobsHandler.Stop)
	jobs.POST("/:id/archive", jobsHandler.Archive)
	jobs.POST("/:id/unarchive", jobsHandler.Unarchive)
	jobs.GET("/:id/logs", jobsHandler.Logs)
	jobs.GET("/:id/results", jobsHandler.Results)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "ScrapeForge",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
