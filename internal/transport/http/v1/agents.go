package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists the configured agents. Upstream URLs and secrets are not
// serialized.
// GET /api/agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": h.service.ListAgents(),
	})
}
