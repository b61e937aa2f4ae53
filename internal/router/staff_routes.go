package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterStaff registers STAFF-scoped endpoints under /v1.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
		limiter,
	)

	// ---- Halls ----
	g.POST("/halls", h.CreateHall)
	g.GET("/halls", h.ListHalls)
	g.GET("/halls/:id/collisions", h.Collisions)

	// ---- Films ----
	g.POST("/films", h.AddFilm)
}
