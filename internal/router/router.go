package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterRoutes registers the health checks: /healthz for liveness and /readyz,
// which also pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterMetrics exposes the Prometheus default registry on /metrics,
// behind basic auth when user and pass are set.
func RegisterMetrics(e *echo.Echo, user, pass string) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(user, pass))
}

// RegisterAuth registers registration and login under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleStaff, model.RoleCustomer))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the browse endpoints.  They need no token so
// guests can look up films, showings and seat maps before signing in.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
	e.GET("/v1/movies", p.SearchMovies)
	e.GET("/v1/movies/:id/showings", p.MovieShowings)
	e.GET("/v1/halls/:id/showings", p.HallShowings)
	e.GET("/v1/showings/:id", p.GetShowing)
	e.GET("/v1/showings/:id/seat-map", p.SeatMap)
}
