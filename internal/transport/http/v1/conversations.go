package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ListConversations lists stored conversations.
// GET /api/conversations?agent_id=&limit=
func (h *Handler) ListConversations(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	convs, err := h.service.ListConversations(c.Request().Context(), c.QueryParam("agent_id"), limit)
	if err != nil {
		return h.fail(c, "Failed to list conversations", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// GetConversation returns a conversation with its messages.
// GET /api/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "Failed to load conversation", err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation deletes a conversation.
// DELETE /api/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	if err := h.service.DeleteConversation(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, "Failed to delete conversation", err)
	}
	return c.NoContent(http.StatusNoContent)
}
