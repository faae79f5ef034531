package server

import (
	"github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.POST("/summaries", routes.SummaryHandler)
	apiRoutes.POST("/graphs", routes.GraphHandler)
	apiRoutes.POST("/jobs", routes.JobHandler)
}
