package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventManagerHandler serves the manager-only event and ticket-tier CRUD.
type EventManagerHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketTypeRepo
}

func NewEventManagerHandler(events *repository.EventRepo, tickets *repository.TicketTypeRepo) *EventManagerHandler {
	if events == nil || tickets == nil {
		panic("nil repository passed to NewEventManagerHandler")
	}
	return &EventManagerHandler{Events: events, Tickets: tickets}
}

type eventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"starts_at"`
}

type eventResp struct {
	UUID        string    `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEventResp(e *model.Event) eventResp {
	return eventResp{
		UUID:        e.UUID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Status:      e.Status,
		StartsAt:    e.StartsAt,
		CreatedAt:   e.CreatedAt,
	}
}

type ticketTypeReq struct {
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Capacity   uint32 `json:"capacity"`
}

type ticketTypeResp struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Capacity   uint32 `json:"capacity"`
	Remaining  uint32 `json:"remaining"`
}

func toTicketTypeResp(t *model.TicketType) ticketTypeResp {
	return ticketTypeResp{
		ID:         t.ID,
		Name:       t.Name,
		PriceCents: t.PriceCents,
		Capacity:   t.Capacity,
		Remaining:  t.Remaining(),
	}
}

// CreateEvent makes a new SCHEDULED event owned by the caller.
func (h *EventManagerHandler) CreateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	if req.Title == "" || req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and starts_at required"})
	}
	if !model.ValidCategory(req.Category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.Create(ctx, uid, req.Title, req.Description, req.Category, req.StartsAt.UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(e))
}

// UpdateEvent edits an event the caller owns.
func (h *EventManagerHandler) UpdateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventUUID := c.Param("uuid")

	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if req.Title == "" || req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and starts_at required"})
	}
	if !model.ValidCategory(req.Category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}
	switch req.Status {
	case model.EventScheduled, model.EventLive, model.EventFinished, model.EventCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.Update(ctx, eventUUID, uid, req.Title, req.Description, req.Category, req.Status, req.StartsAt.UTC())
	switch err {
	case nil:
		return c.JSON(http.StatusOK, toEventResp(e))
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
}

// DeleteEvent soft-deletes an owned event; it disappears from listings but
// stays referenced by past orders.
func (h *EventManagerHandler) DeleteEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventUUID := c.Param("uuid")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Events.SoftDelete(ctx, eventUUID, uid); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
}

// CreateTicketType adds a priced tier with a fixed capacity to an owned event.
func (h *EventManagerHandler) CreateTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventUUID := c.Param("uuid")

	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and capacity required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByUUID(ctx, eventUUID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if e.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	}

	t, err := h.Tickets.Create(ctx, e.ID, req.Name, req.PriceCents, req.Capacity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket type failed"})
	}
	return c.JSON(http.StatusCreated, toTicketTypeResp(t))
}

// UpdateTicketType edits name, price or capacity of a tier. Capacity can
// never drop below the number already sold.
func (h *EventManagerHandler) UpdateTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ttID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and capacity required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.ownsTicketType(ctx, uid, ttID); err != nil {
		return ownershipError(c, err)
	}

	t, err := h.Tickets.Update(ctx, ttID, req.Name, req.PriceCents, req.Capacity)
	switch err {
	case nil:
		return c.JSON(http.StatusOK, toTicketTypeResp(t))
	case repository.ErrTicketTypeNotFound:
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below sold count"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket type failed"})
	}
}

// RetireTicketType stops further sales of a tier without touching existing
// reservations or orders.
func (h *EventManagerHandler) RetireTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ttID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.ownsTicketType(ctx, uid, ttID); err != nil {
		return ownershipError(c, err)
	}

	switch err := h.Tickets.Retire(ctx, ttID); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrTicketTypeNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "retire ticket type failed"})
	}
}

// ownsTicketType walks tier -> event and verifies the caller manages it.
func (h *EventManagerHandler) ownsTicketType(ctx context.Context, uid, ttID uint64) error {
	t, err := h.Tickets.GetByID(ctx, ttID)
	if err != nil {
		return err
	}
	e, err := h.Events.GetByID(ctx, t.EventID)
	if err != nil {
		return err
	}
	if e.UserID != uid {
		return repository.ErrForbidden
	}
	return nil
}

func ownershipError(c echo.Context, err error) error {
	switch err {
	case repository.ErrTicketTypeNotFound, repository.ErrEventNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ownership check failed"})
	}
}
