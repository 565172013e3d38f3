package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/checkout"
    "github.com/iliyamo/tour-booking/internal/middleware"
    "github.com/iliyamo/tour-booking/internal/model"
    "github.com/iliyamo/tour-booking/internal/repository"
)

// BookingHandler serves customers' own bookings and the admin order
// views.  JWTAuth runs in front of every route.
type BookingHandler struct {
    Orders    *repository.OrderRepo
    Payments  *repository.PaymentRepo
    Canceller *checkout.Canceller
    Log       logrus.FieldLogger
}

func NewBookingHandler(orders *repository.OrderRepo, payments *repository.PaymentRepo, canceller *checkout.Canceller, log logrus.FieldLogger) *BookingHandler {
    return &BookingHandler{Orders: orders, Payments: payments, Canceller: canceller, Log: log}
}

func actorOf(c echo.Context) checkout.Actor {
    uid, _ := middleware.UserID(c)
    return checkout.Actor{UserID: uid, Admin: middleware.IsAdmin(c)}
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orders, err := h.Orders.ListByUser(c.Request().Context(), uid)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if orders == nil {
        orders = []model.Order{}
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": orders})
}

// Cancel handles DELETE /v1/bookings/:id and DELETE /v1/admin/orders/:id.
// Ownership is enforced by the canceller unless the caller is an admin.
func (h *BookingHandler) Cancel(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    o, err := h.Canceller.Cancel(c.Request().Context(), id, actorOf(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, o)
}

// AdminGet handles GET /v1/admin/orders/:id: the order with its payments.
func (h *BookingHandler) AdminGet(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx := c.Request().Context()
    o, err := h.Orders.GetByID(ctx, id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    payments, err := h.Payments.ListByOrder(ctx, id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if payments == nil {
        payments = []model.Payment{}
    }
    return c.JSON(http.StatusOK, echo.Map{"order": o, "payments": payments})
}

// AdminArchive handles POST /v1/admin/orders/:id/archive.  Only cancelled
// orders may be archived so no live booking disappears from reports.
func (h *BookingHandler) AdminArchive(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    ctx := c.Request().Context()
    o, err := h.Orders.GetByID(ctx, id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if o.Status != model.OrderCancelled {
        return c.JSON(http.StatusConflict, echo.Map{"error": "only cancelled orders can be archived"})
    }
    if err := h.Orders.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
        }
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
