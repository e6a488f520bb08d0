package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/novaflow/internal/domain"
)

// IndexBrandKit embeds and stores brand kit documents.
// POST /brandkit/index
func (h *Handler) IndexBrandKit(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.IndexDocsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Docs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "docs is required"})
	}
	for _, d := range req.Docs {
		if d.Title == "" || d.Content == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "every doc needs a title and content"})
		}
	}

	resp, err := h.service.IndexBrandDocs(ctx, &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}
