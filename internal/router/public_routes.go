package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterPublic registers the unauthenticated browse endpoints. cacheMW is
// the Redis response cache; pass nil to run without caching (the listings
// are the hottest read path, everything else is uncached).
func RegisterPublic(e *echo.Echo, p *handler.EventPublicHandler, cacheMW echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cacheMW != nil {
		mws = append(mws, cacheMW)
	}
	e.GET("/v1/events", p.ListEvents, mws...)
	e.GET("/v1/events/:uuid", p.GetEvent, mws...)
	e.GET("/v1/events/:uuid/likes", p.ListLikes)
}
