package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/checkout"
    "github.com/iliyamo/tour-booking/internal/discount"
    "github.com/iliyamo/tour-booking/internal/middleware"
    "github.com/iliyamo/tour-booking/internal/model"
    "github.com/iliyamo/tour-booking/internal/payfast"
    "github.com/iliyamo/tour-booking/internal/repository"
)

// CheckoutHandler turns the caller's cart into pending orders and hands
// back what the browser needs to pay for them.
type CheckoutHandler struct {
    Materializer *checkout.Materializer
    Gateway      *payfast.Gateway
    Orders       *repository.OrderRepo
    Log          logrus.FieldLogger
}

func NewCheckoutHandler(m *checkout.Materializer, g *payfast.Gateway, orders *repository.OrderRepo, log logrus.FieldLogger) *CheckoutHandler {
    return &CheckoutHandler{Materializer: m, Gateway: g, Orders: orders, Log: log}
}

type checkoutReq struct {
    FirstName    string `json:"first_name"`
    LastName     string `json:"last_name"`
    Email        string `json:"email"`
    DiscountCode string `json:"discount_code"`
}

type paymentPart struct {
    Action string            `json:"action"`
    Fields map[string]string `json:"fields"`
    PayURL string            `json:"pay_url"`
}

type checkoutResp struct {
    CheckoutID string        `json:"checkout_id"`
    Orders     []model.Order `json:"orders"`
    TotalCents int64         `json:"total_cents"`
    Payment    paymentPart   `json:"payment"`
}

// Checkout handles POST /v1/checkout.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
    var req checkoutReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    cust := checkout.Customer{
        FirstName: strings.TrimSpace(req.FirstName),
        LastName:  strings.TrimSpace(req.LastName),
        Email:     strings.TrimSpace(req.Email),
        UserID:    middleware.UserIDPtr(c),
    }
    var dec *discount.Decision
    if code := strings.TrimSpace(req.DiscountCode); code != "" {
        dec = &discount.Decision{Code: code}
    }

    orders, err := h.Materializer.Materialize(c.Request().Context(), cartKey(c), cust, dec)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    redirect, err := h.Gateway.BuildRedirect(orders, cust)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    var total int64
    for _, o := range orders {
        total += o.TotalCents
    }
    return c.JSON(http.StatusCreated, checkoutResp{
        CheckoutID: orders[0].CheckoutID,
        Orders:     orders,
        TotalCents: total,
        Payment: paymentPart{
            Action: redirect.Action,
            Fields: redirect.FieldMap(),
            PayURL: "/v1/checkout/" + orders[0].CheckoutID + "/pay",
        },
    })
}

// Pay handles GET /v1/checkout/:checkout_id/pay and renders the
// auto-submitting gateway form for the checkout's unpaid orders.
func (h *CheckoutHandler) Pay(c echo.Context) error {
    id := strings.TrimSpace(c.Param("checkout_id"))
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid checkout id"})
    }
    all, err := h.Orders.ListByCheckout(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if len(all) == 0 {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "checkout not found"})
    }
    var payable []model.Order
    for _, o := range all {
        if o.IsPayable() {
            payable = append(payable, o)
        }
    }
    if len(payable) == 0 {
        return c.JSON(http.StatusConflict, echo.Map{"error": "nothing left to pay on this checkout"})
    }
    first, last, _ := strings.Cut(payable[0].CustomerName, " ")
    redirect, err := h.Gateway.BuildRedirect(payable, checkout.Customer{
        FirstName: first,
        LastName:  last,
        Email:     payable[0].CustomerEmail,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    page, err := payfast.RenderForm(redirect)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.HTMLBlob(http.StatusOK, page)
}
