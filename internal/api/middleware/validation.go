package middleware

import (
	"net/http"
	"time"

	"scrapeforge/pkg/models"
	"scrapeforge/pkg/utils"

	"github.com/labstack/echo/v4"
)

// RequestValidation stamps every request with a request ID and rejects
// oversized bodies before they reach a handler.
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := utils.GenerateRequestID()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			if c.Request().Method == http.MethodPost {
				if c.Request().ContentLength > 1024*1024 {
					return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
						Error:     "request_too_large",
						Message:   "request body too large",
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
			}

			return next(c)
		}
	}
}
