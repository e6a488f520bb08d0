package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/novaflow/internal/domain"
	"github.com/xiaot623/novaflow/internal/service"
)

func runIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("run_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CreateTask plans a new task and stores it as a PLANNED run.
// POST /task
func (h *Handler) CreateTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.TaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Task == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "task is required"})
	}

	resp, err := h.service.CreateTask(ctx, &req)
	if err != nil {
		var rejected *service.PlanRejectedError
		if errors.As(err, &rejected) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":      "plan blocked by policy",
				"violations": rejected.Violations,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// GetRun returns a run with its decoded plan and full log.
// GET /runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	runID, ok := runIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run id"})
	}

	detail, err := h.service.GetRunDetail(ctx, runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, detail)
}

// ExecuteNextUIStep executes the next pending ui step of a run. A step
// failure is still a 200: the response carries status ERROR and the next
// call retries the same step.
// POST /runs/:run_id/execute-next-ui-step
// POST /runs/:run_id/execute-first-ui-step
func (h *Handler) ExecuteNextUIStep(c echo.Context) error {
	ctx := c.Request().Context()

	runID, ok := runIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run id"})
	}

	resp, err := h.service.AdvanceRun(ctx, runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// CloseUISession tears down a run's browser session. Idempotent.
// POST /runs/:run_id/close-ui-session
func (h *Handler) CloseUISession(c echo.Context) error {
	ctx := c.Request().Context()

	runID, ok := runIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid run id"})
	}

	resp, err := h.service.CloseRunSession(ctx, runID)
	if err != nil {
		if errors.Is(err, service.ErrRunNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}
