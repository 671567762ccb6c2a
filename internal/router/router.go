// Package router registers HTTP routes and their middleware.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-booking/internal/handler"
	"github.com/iliyamo/screening-seat-booking/internal/middleware"
)

// RegisterRoutes registers unauthenticated operational endpoints.  metrics
// may be nil.
func RegisterRoutes(e *echo.Echo, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the admin login endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AdminAuthHandler) {
	e.POST("/v1/admin/login", a.Login)
}

// RegisterCatalog registers public catalog reads behind the response cache
// and admin-only catalog writes.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, responseCache echo.MiddlewareFunc) {
	e.GET("/v1/movies", h.ListMovies, responseCache)
	e.GET("/v1/theatres", h.ListTheatres, responseCache)
	e.GET("/v1/dates", h.ListDates)

	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(handler.RoleAdmin))
	admin.POST("/movies", h.CreateMovie)
	admin.POST("/theatres", h.CreateTheatre)
}

// RegisterBooking registers seat maps, the rate limited commit endpoint and
// the admin bookings report.
func RegisterBooking(e *echo.Echo, s *handler.ScreeningHandler, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.GET("/v1/screenings/seats", s.SeatMap)
	e.POST("/v1/bookings", b.Commit, limiter)
	e.GET("/v1/bookings", b.List, middleware.JWTAuth(jwtSecret), middleware.RequireRole(handler.RoleAdmin))
}
