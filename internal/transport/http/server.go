// Package http provides the HTTP server for the runner service.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/service"
	v1 "github.com/xiaot623/novaflow/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	// Screenshots are written under cfg.ArtifactsDir and served here, so the
	// screenshot_url in step results resolves against this server.
	e.Static("/artifacts", cfg.ArtifactsDir)

	// Handlers
	handler := v1.NewHandler(svc, cfg)
	handler.RegisterRoutes(e)

	return e
}
