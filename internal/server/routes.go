package server

import (
	"github.com/urbanair/aqkg/internal/server/middleware"
	"github.com/urbanair/aqkg/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Fragment routes
	apiRoutes.POST("/validate", routes.ValidateHandler)
	apiRoutes.POST("/merge", routes.MergeHandler)
	apiRoutes.POST("/export", routes.ExportHandler)

	// Graph routes
	apiRoutes.POST("/import", routes.ImportHandler)
	apiRoutes.POST("/search", routes.SearchHandler)
	apiRoutes.POST("/ask", routes.AskHandler)

	// Worker routes
	apiRoutes.POST("/jobs/merge", routes.EnqueueMergeHandler)
}
