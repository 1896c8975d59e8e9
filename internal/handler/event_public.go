package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventPublicHandler serves the browse side: listings, event detail with
// its ticket tiers, and likes.
type EventPublicHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketTypeRepo
}

func NewEventPublicHandler(events *repository.EventRepo, tickets *repository.TicketTypeRepo) *EventPublicHandler {
	if events == nil || tickets == nil {
		panic("nil repository passed to NewEventPublicHandler")
	}
	return &EventPublicHandler{Events: events, Tickets: tickets}
}

// ListEvents returns SCHEDULED and LIVE events, newest first, with keyset
// pagination. Query params: take (page size), cursor (uuid of the last
// event of the previous page), category (optional filter).
func (h *EventPublicHandler) ListEvents(c echo.Context) error {
	take := 20
	if s := c.QueryParam("take"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "take must be 1..100"})
		}
		take = n
	}
	category := strings.ToUpper(strings.TrimSpace(c.QueryParam("category")))
	if category != "" && !model.ValidCategory(category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, next, err := h.Events.List(ctx, category, take, c.QueryParam("cursor"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}

	out := make([]eventResp, 0, len(events))
	for i := range events {
		out = append(out, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out, "next_cursor": next})
}

// GetEvent returns one event together with its active ticket tiers.
func (h *EventPublicHandler) GetEvent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByUUID(ctx, c.Param("uuid"))
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	tiers, err := h.Tickets.ListByEvent(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket types failed"})
	}
	tierViews := make([]ticketTypeResp, 0, len(tiers))
	for i := range tiers {
		tierViews = append(tierViews, toTicketTypeResp(&tiers[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"event":        toEventResp(e),
		"ticket_types": tierViews,
	})
}

// ToggleLike likes the event for the caller, or unlikes it when already
// liked. Responds with the resulting state.
func (h *EventPublicHandler) ToggleLike(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByUUID(ctx, c.Param("uuid"))
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	liked, err := h.Events.ToggleLike(ctx, e.ID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle like failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}

// ListLikes returns the users who like an event.
func (h *EventPublicHandler) ListLikes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByUUID(ctx, c.Param("uuid"))
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	likers, err := h.Events.ListLikes(ctx, e.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list likes failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"likes": likers, "count": len(likers)})
}
