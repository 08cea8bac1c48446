// Package handler exposes the lookup path over HTTP.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register mounts every route on e. metricsHandler may be nil.
func Register(e *echo.Echo, companies *CompanyHandler, health *HealthHandler, metricsHandler http.Handler) {
	e.GET("/health", health.HealthCheck)
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	e.GET("/api/companies/:cnpj", companies.GetCompany)

	internal := e.Group("/internal")
	internal.POST("/companies/:cnpj/import", companies.Import)
}
