// Package http provides the HTTP server implementation for the assistant
// gateway.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/emrenamli69/regnum-presentation/internal/service"
	v1 "github.com/emrenamli69/regnum-presentation/internal/transport/http/v1"
)

// RouteRegistrar adds routes to the server.
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo)
}

// NewServer creates and configures the HTTP server. Extra registrars, such
// as the websocket endpoint, are mounted after the API routes.
func NewServer(svc *service.Service, production bool, extra ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	// Handlers
	v1Handler := v1.NewHandler(svc, production)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	for _, r := range extra {
		r.RegisterRoutes(e)
	}

	return e
}
