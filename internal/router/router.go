package router // package router wires handlers and middleware onto echo route groups

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coworking-booking/internal/handler"
	"github.com/iliyamo/coworking-booking/internal/middleware"
	"github.com/iliyamo/coworking-booking/internal/model"
)

// RegisterRoutes registers the liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	// Liveness: answers as long as the process serves HTTP.
	e.GET("/healthz", handler.Health)
	// Readiness: pings the database so load balancers stop routing to an
	// instance that cannot reach its store.
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers session endpoints. Register, login, refresh and
// logout live under /v1/auth without a token; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that create or exchange a session need no access token.
	g := e.Group("/v1/auth")
	// Self-registration always yields a CUSTOMER account.
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	// Issues a new access token and keeps the refresh token as is.
	g.POST("/refresh-access", a.RefreshAccess)
	// Accepts a refresh_token body, or a bearer token to end every session.
	g.POST("/logout", a.Logout)

	// Any authenticated role may read its own profile.
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)

	// Staff and admin accounts are only created by an admin.
	admin := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/users", a.CreateAccount)
}

// RegisterPublic registers unauthenticated browse endpoints. cache wraps the
// resource catalogue only: availability depends on live bookings and on the
// current time, so it is computed on every request.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	// The catalogue changes rarely; a short TTL is acceptable here.
	g.GET("/resources", p.ListResources, cache)
	g.GET("/resources/:id", p.GetResource, cache)
	// Never cached. Remaining capacity and disabled slots must reflect the
	// store and the clock at the moment of the request.
	g.GET("/resources/:id/availability", p.Availability)
}
