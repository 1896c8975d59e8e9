package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// CheckoutService is the slice of the checkout coordinator the HTTP layer
// needs. Narrowed to an interface so handler tests can stub it.
type CheckoutService interface {
	AddToCart(ctx context.Context, userID, eventID, ticketTypeID uint64, qty uint32) (*service.CartView, error)
	BuyCart(ctx context.Context, userID uint64) (*service.OrderView, error)
	CancelCart(ctx context.Context, userID, cartID uint64) error
	OpenCart(ctx context.Context, userID uint64) (*service.CartView, error)
}

// CheckoutHandler exposes the cart lifecycle over HTTP. Event references
// come in as public uuids and are resolved to internal IDs before hitting
// the coordinator.
type CheckoutHandler struct {
	Svc    CheckoutService
	Events *repository.EventRepo
}

func NewCheckoutHandler(svc CheckoutService, events *repository.EventRepo) *CheckoutHandler {
	if svc == nil || events == nil {
		panic("nil dependency passed to NewCheckoutHandler")
	}
	return &CheckoutHandler{Svc: svc, Events: events}
}

type addToCartReq struct {
	EventUUID    string `json:"event_uuid"`
	TicketTypeID uint64 `json:"ticket_type_id"`
	Qty          uint32 `json:"qty"`
}

// AddToCart reserves tickets into the caller's open cart, creating the
// cart on first add.
func (h *CheckoutHandler) AddToCart(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addToCartReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventUUID == "" || req.TicketTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_uuid and ticket_type_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	e, err := h.Events.GetByUUID(ctx, req.EventUUID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	cart, err := h.Svc.AddToCart(ctx, uid, e.ID, req.TicketTypeID, req.Qty)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// GetCart returns the caller's open cart.
func (h *CheckoutHandler) GetCart(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Svc.OpenCart(ctx, uid)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// BuyCart turns the caller's open cart into an order.
func (h *CheckoutHandler) BuyCart(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.Svc.BuyCart(ctx, uid)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// CancelCart releases every reservation of the cart and cancels it.
// Cancelling twice is a no-op.
func (h *CheckoutHandler) CancelCart(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cartID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cart id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Svc.CancelCart(ctx, uid, cartID); err != nil {
		if errors.Is(err, service.ErrAlreadyCancelled) {
			return c.JSON(http.StatusOK, echo.Map{"message": "already cancelled"})
		}
		return checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// checkoutError maps coordinator sentinels onto HTTP responses. The error
// field carries a stable machine-readable code.
func checkoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrOutOfStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": "OUT_OF_STOCK"})
	case errors.Is(err, service.ErrCartClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "CART_CLOSED"})
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "EMPTY_CART"})
	case errors.Is(err, service.ErrNoOpenCart):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "NO_OPEN_CART"})
	case errors.Is(err, service.ErrCartConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "CONFLICT"})
	case errors.Is(err, service.ErrCartNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "CART_NOT_FOUND"})
	case errors.Is(err, service.ErrTicketTypeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "TICKET_TYPE_NOT_FOUND"})
	case errors.Is(err, service.ErrNotCartOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN"})
	case errors.Is(err, service.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "INVALID_QUANTITY"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL"})
	}
}
