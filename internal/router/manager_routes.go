package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterManager registers event and ticket-tier administration under /v1.
// Every route requires a valid JWT with the MANAGER role; per-event
// ownership is enforced in the handlers.
func RegisterManager(e *echo.Echo, h *handler.EventManagerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager),
	)
	g.POST("/events", h.CreateEvent)
	g.PUT("/events/:uuid", h.UpdateEvent)
	g.DELETE("/events/:uuid", h.DeleteEvent)

	g.POST("/events/:uuid/ticket-types", h.CreateTicketType)
	g.PUT("/ticket-types/:id", h.UpdateTicketType)
	g.DELETE("/ticket-types/:id", h.RetireTicketType)
}
