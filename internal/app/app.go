// Package app wires repositories, services and handlers into an echo
// server.  cmd/server calls it with production dependencies; tests call it
// with SQLite and no Redis.
package app

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/cart"
	"github.com/iliyamo/tour-booking/internal/checkout"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/discount"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/inventory"
	"github.com/iliyamo/tour-booking/internal/lock"
	"github.com/iliyamo/tour-booking/internal/middleware"
	"github.com/iliyamo/tour-booking/internal/payfast"
	"github.com/iliyamo/tour-booking/internal/reconcile"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/router"
)

// Deps are the process-level resources.  Redis and Publisher may be nil.
type Deps struct {
	Config     config.Config
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
	DB         *sql.DB
	Redis      *redis.Client
	Publisher  reconcile.Publisher
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

// New builds the server.
func New(d Deps) *echo.Echo {
	db, log, cfg := d.DB, d.Log, d.Config

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tours := repository.NewTourRepo(db)
	slots := repository.NewTimeSlotRepo(db)
	carts := repository.NewCartRepo(db)
	discounts := repository.NewDiscountRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)

	ledger := inventory.NewLedger(slots)
	cartSvc := cart.NewService(db, carts, tours, slots)
	evaluator := discount.NewEvaluator(discounts)
	mat := checkout.NewMaterializer(db, cartSvc, ledger, evaluator, orders, tours, log)
	canceller := checkout.NewCanceller(db, orders, ledger, log)

	gateway := payfast.NewGateway(cfg.PayFast, log)
	if d.HTTPClient != nil {
		gateway.WithHTTPClient(d.HTTPClient)
	}
	locker := lock.New(d.Redis, "lock:")
	engine := reconcile.NewEngine(db, gateway, orders, payments, tours, locker, d.Publisher, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewTourHandler(tours, slots, log),
		handler.NewITNHandler(engine, log),
		middleware.NewRedisCache(d.Cache, d.Redis, log),
	)
	router.RegisterShop(e, router.Shop{
		Cart:      handler.NewCartHandler(cartSvc, log),
		Discounts: handler.NewDiscountHandler(cartSvc, evaluator, log),
		Checkout:  handler.NewCheckoutHandler(mat, gateway, orders, log),
	}, cfg.JWTSecret, cfg.SecureCookies, middleware.NewTokenBucket(d.RateLimit, d.Redis, log))

	bookings := handler.NewBookingHandler(orders, payments, canceller, log)
	router.RegisterCustomer(e, bookings, cfg.JWTSecret)
	router.RegisterAdmin(e, bookings, cfg.JWTSecret)
	return e
}
