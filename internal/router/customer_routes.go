package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/model"
)

// Shop bundles the handlers behind the cart session.
type Shop struct {
	Cart      *handler.CartHandler
	Discounts *handler.DiscountHandler
	Checkout  *handler.CheckoutHandler
}

// RegisterShop registers cart, discount preview and checkout routes.  They
// work for guests and signed-in customers alike, and all of them are rate
// limited.
func RegisterShop(e *echo.Echo, s Shop, jwtSecret string, secureCookies bool, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.CartSession(secureCookies),
		middleware.OptionalJWT(jwtSecret),
		limiter,
	)
	g.GET("/cart", s.Cart.Get)
	g.POST("/cart", s.Cart.Add)
	g.DELETE("/cart", s.Cart.Clear)
	g.PUT("/cart/items/:id", s.Cart.Update)
	g.DELETE("/cart/items/:id", s.Cart.Remove)

	g.POST("/discounts/validate", s.Discounts.Validate)
	g.POST("/checkout", s.Checkout.Checkout)
	g.GET("/checkout/:checkout_id/pay", s.Checkout.Pay)
}

// RegisterCustomer registers a signed-in customer's booking routes.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.GET("/my-bookings", h.Mine)
	g.DELETE("/bookings/:id", h.Cancel)
}

// RegisterAdmin registers ADMIN-only order management.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/orders/:id", h.AdminGet)
	g.DELETE("/orders/:id", h.Cancel)
	g.POST("/orders/:id/archive", h.AdminArchive)
}
