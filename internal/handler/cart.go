package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/cart"
    "github.com/iliyamo/tour-booking/internal/middleware"
)

// CartHandler serves the session cart.  It relies on CartSession and
// OptionalJWT having run.
type CartHandler struct {
    Carts *cart.Service
    Log   logrus.FieldLogger
}

func NewCartHandler(carts *cart.Service, log logrus.FieldLogger) *CartHandler {
    return &CartHandler{Carts: carts, Log: log}
}

func cartKey(c echo.Context) cart.Key {
    return cart.Key{SessionID: middleware.SessionID(c), UserID: middleware.UserIDPtr(c)}
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
    v, err := h.Carts.Get(c.Request().Context(), cartKey(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, v)
}

// Add handles POST /v1/cart.
func (h *CartHandler) Add(c echo.Context) error {
    var in cart.ItemInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    item, err := h.Carts.AddItem(c.Request().Context(), cartKey(c), in)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, item)
}

// Update handles PUT /v1/cart/items/:id.
func (h *CartHandler) Update(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
    }
    var body struct {
        Participants map[string]int `json:"participants"`
        TimeSlotID   *uint64        `json:"time_slot_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    item, err := h.Carts.UpdateItem(c.Request().Context(), cartKey(c), id, body.Participants, body.TimeSlotID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, item)
}

// Remove handles DELETE /v1/cart/items/:id.
func (h *CartHandler) Remove(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
    }
    if err := h.Carts.RemoveItem(c.Request().Context(), cartKey(c), id); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Clear handles DELETE /v1/cart.
func (h *CartHandler) Clear(c echo.Context) error {
    if err := h.Carts.Clear(c.Request().Context(), cartKey(c)); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
