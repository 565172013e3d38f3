package router // package router registers the HTTP routes of the booking API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers token endpoints under /v1/auth and the protected
// account endpoints under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers catalog reads and the gateway callback.  The
// callback is never rate limited: throttling the gateway only delays
// confirmations.
func RegisterPublic(e *echo.Echo, t *handler.TourHandler, itn *handler.ITNHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tours/:id/slots", t.Slots, cache)
	e.POST("/v1/payments/payfast/notify", itn.Notify)
}
