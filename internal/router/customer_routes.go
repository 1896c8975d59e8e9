package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterCustomer registers the cart, order and like endpoints under /v1.
// All routes require a valid JWT; managers are allowed too since they can
// buy tickets like anyone else. limitMW is the Redis token bucket applied
// to the cart mutations; pass nil to disable.
func RegisterCustomer(e *echo.Echo, ch *handler.CheckoutHandler, oh *handler.OrderHandler, ph *handler.EventPublicHandler, jwtSecret string, limitMW echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleManager),
	)

	cart := []echo.MiddlewareFunc{}
	if limitMW != nil {
		cart = append(cart, limitMW)
	}
	g.GET("/cart", ch.GetCart)
	g.POST("/cart/items", ch.AddToCart, cart...)
	g.POST("/cart/checkout", ch.BuyCart, cart...)
	g.DELETE("/cart/:id", ch.CancelCart, cart...)

	g.GET("/orders", oh.ListOrders)
	g.GET("/orders/:uuid", oh.GetOrder)
	g.POST("/orders/:uuid/refund", oh.RefundOrder)

	g.POST("/events/:uuid/like", ph.ToggleLike)
}
