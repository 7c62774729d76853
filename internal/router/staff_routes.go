package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-booking/internal/handler"
	"github.com/iliyamo/coworking-booking/internal/middleware"
	"github.com/iliyamo/coworking-booking/internal/model"
)

// RegisterStaff registers front-desk endpoints under /v1/staff. All routes
// require a valid JWT with the STAFF or ADMIN role.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	// Day sheet filtered by date, resource and status.
	g.GET("/bookings", h.List)
	// Lifecycle transitions. Each one is a conditional update, so a second
	// click or a racing sweep gets 409 instead of overwriting the record.
	g.POST("/bookings/:id/check-in", h.CheckIn)
	g.POST("/bookings/:id/check-out", h.CheckOut)
	g.POST("/bookings/:id/cancel", h.Cancel)
	// Runs the no-show sweep on demand; safe to repeat.
	g.POST("/sweep", h.Sweep)
}
