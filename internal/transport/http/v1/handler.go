// Package v1 provides the HTTP handlers for the runner API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/novaflow/internal/config"
	"github.com/xiaot623/novaflow/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	config  *config.Config
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, cfg *config.Config) *Handler {
	return &Handler{
		service: service,
		config:  cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Brand kit API
	e.POST("/brandkit/index", h.IndexBrandKit)

	// Planning and run API
	e.POST("/task", h.CreateTask)
	e.GET("/runs/:run_id", h.GetRun)
	e.POST("/runs/:run_id/execute-next-ui-step", h.ExecuteNextUIStep)
	e.POST("/runs/:run_id/execute-first-ui-step", h.ExecuteNextUIStep)
	e.POST("/runs/:run_id/close-ui-session", h.CloseUISession)

	e.GET("/health", h.Health)
}

// Health returns health status and runner counters.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":            true,
		"mode":          h.config.Mode,
		"planner_model": h.config.PlannerModel,
		"embed_model":   h.config.EmbeddingModel,
		"db_configured": h.config.DatabaseURL != "",
		"artifacts_url": "/artifacts",
		"runner":        h.service.RunnerStats(),
	})
}
