package handler

import (
    "context"
    "errors"
    "io"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/payfast"
    "github.com/iliyamo/tour-booking/internal/reconcile"
)

const maxNotificationBytes = 64 << 10

// Reconciler applies a verified notification.  *reconcile.Engine is the
// production implementation.
type Reconciler interface {
    Handle(ctx context.Context, f payfast.Fields) (reconcile.Outcome, error)
}

// ITNHandler receives gateway payment notifications.  Replies are plain
// text and never say why a notification was refused.
type ITNHandler struct {
    Engine Reconciler
    Log    logrus.FieldLogger
}

func NewITNHandler(e Reconciler, log logrus.FieldLogger) *ITNHandler {
    return &ITNHandler{Engine: e, Log: log}
}

// Notify handles POST /v1/payments/payfast/notify.  The body is read raw
// so field order, which the signature depends on, survives.
func (h *ITNHandler) Notify(c echo.Context) error {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxNotificationBytes))
    if err != nil {
        return c.String(http.StatusBadRequest, "Bad Request")
    }
    fields, err := payfast.ParseForm(body)
    if err != nil || len(fields) == 0 {
        h.Log.WithError(err).Warn("unparseable payfast notification")
        return c.String(http.StatusBadRequest, "Bad Request")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    out, err := h.Engine.Handle(ctx, fields)
    switch {
    case err == nil && out.Status == reconcile.InFlight:
        return c.String(http.StatusServiceUnavailable, "Retry")
    case err == nil:
        return c.String(http.StatusOK, "OK")
    case errors.Is(err, reconcile.ErrSignatureVerificationFailed),
        errors.Is(err, reconcile.ErrMalformedNotification),
        errors.Is(err, reconcile.ErrMissingOrderReference),
        errors.Is(err, reconcile.ErrUnknownOrder),
        errors.Is(err, reconcile.ErrAmountMismatch):
        return c.String(http.StatusBadRequest, "Bad Request")
    }
    h.Log.WithError(err).Error("payfast notification failed")
    return c.String(http.StatusInternalServerError, "Internal Server Error")
}
