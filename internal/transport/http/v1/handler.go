// Package v1 provides the HTTP API handlers of the assistant gateway.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emrenamli69/regnum-presentation/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	// production hides error details from responses.
	production bool
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, production bool) *Handler {
	return &Handler{
		service:    service,
		production: production,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat
	e.POST("/api/chat", h.Chat)
	e.POST("/api/chat/stop/:task_id", h.StopChat)

	// CRM
	e.POST("/api/crm", h.QueryCRM)
	e.GET("/api/health/crm", h.CRMHealth)
	e.POST("/api/health/crm", h.CRMHealth)

	// Agents and history
	e.GET("/api/agents", h.ListAgents)
	e.GET("/api/conversations", h.ListConversations)
	e.GET("/api/conversations/:id", h.GetConversation)
	e.DELETE("/api/conversations/:id", h.DeleteConversation)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
