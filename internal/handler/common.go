package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/cart"
    "github.com/iliyamo/tour-booking/internal/checkout"
    "github.com/iliyamo/tour-booking/internal/discount"
    "github.com/iliyamo/tour-booking/internal/inventory"
    "github.com/iliyamo/tour-booking/internal/repository"
)

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// writeError maps domain errors to JSON responses.  Anything unrecognised
// is logged and reported as a generic 500.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
    var verr *cart.ValidationError
    var derr *discount.Error
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
    case errors.As(err, &derr):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": derr.Error(), "code": string(derr.Kind)})
    case errors.Is(err, cart.ErrBelowMinimumParticipants):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, cart.ErrMissingSession), errors.Is(err, checkout.ErrEmptyCart):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, checkout.ErrOrderNotFound),
        errors.Is(err, repository.ErrNotFound), errors.Is(err, inventory.ErrTimeSlotNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, inventory.ErrCapacityExceeded):
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough spots left on this time slot"})
    case errors.Is(err, checkout.ErrNotCancellable):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    log.WithError(err).WithField("path", c.Path()).Error("request failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
