package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/cart"
    "github.com/iliyamo/tour-booking/internal/discount"
    "github.com/iliyamo/tour-booking/internal/middleware"
)

// DiscountHandler previews a code against the caller's cart.  Nothing is
// recorded; usage is only counted when checkout commits.
type DiscountHandler struct {
    Carts     *cart.Service
    Evaluator *discount.Evaluator
    Log       logrus.FieldLogger
}

func NewDiscountHandler(carts *cart.Service, ev *discount.Evaluator, log logrus.FieldLogger) *DiscountHandler {
    return &DiscountHandler{Carts: carts, Evaluator: ev, Log: log}
}

// Validate handles POST /v1/discounts/validate.
func (h *DiscountHandler) Validate(c echo.Context) error {
    var body struct {
        Code string `json:"code"`
    }
    if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Code) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
    }
    ctx := c.Request().Context()
    v, err := h.Carts.Get(ctx, cartKey(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    dec, err := h.Evaluator.Validate(ctx, body.Code, v.Totals.SubtotalCents, middleware.UserIDPtr(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "discount":    dec,
        "total_cents": dec.SubtotalCents - dec.DiscountCents,
    })
}
