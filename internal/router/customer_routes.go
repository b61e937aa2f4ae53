package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterCustomer registers booking endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER role; limiter runs after
// authentication so buckets can be keyed by user.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
		limiter,
	)
	g.POST("/showings/:id/bookings", h.Book)
	g.DELETE("/showings/:id/bookings/:seat", h.Cancel)
	g.GET("/my-bookings", h.MyBookings)
}
