package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-booking/internal/handler"
	"github.com/iliyamo/coworking-booking/internal/middleware"
)

// RegisterBookings registers booking endpoints. Creating a booking works
// with or without a token: anonymous callers book as guests by phone.
// Everything else requires a valid JWT; the handler scopes customers to
// their own bookings.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	// OptionalJWT runs before the limiter so signed-in callers are limited
	// per user and anonymous callers per client IP.
	e.POST("/v1/bookings", h.Create, middleware.OptionalJWT(jwtSecret), limiter)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	// Bookings held by the caller in start order, optionally by status.
	g.GET("/my-bookings", h.ListMine)
	// Owners see their own booking; staff may read any.
	g.GET("/bookings/:id", h.Get)
	// Customer cancellation, allowed only before the booking starts.
	g.DELETE("/bookings/:id", h.Cancel)
}
