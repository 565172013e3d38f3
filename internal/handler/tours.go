package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/repository"
)

// TourHandler exposes read-only availability.
type TourHandler struct {
    Tours    *repository.TourRepo
    SlotRepo *repository.TimeSlotRepo
    Log      logrus.FieldLogger
}

func NewTourHandler(tours *repository.TourRepo, slots *repository.TimeSlotRepo, log logrus.FieldLogger) *TourHandler {
    return &TourHandler{Tours: tours, SlotRepo: slots, Log: log}
}

type slotView struct {
    ID                 uint64 `json:"id"`
    StartTime          string `json:"start_time"`
    EndTime            string `json:"end_time"`
    Remaining          int    `json:"remaining"`
    PriceOverrideCents *int64 `json:"price_override_cents,omitempty"`
}

// Slots handles GET /v1/tours/:id/slots?date=YYYY-MM-DD.
func (h *TourHandler) Slots(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tour id"})
    }
    date := c.QueryParam("date")
    if _, err := time.Parse("2006-01-02", date); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
    }
    ctx := c.Request().Context()
    tour, err := h.Tours.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "tour not found"})
    }
    if err != nil {
        return writeError(c, h.Log, err)
    }
    prices, err := h.Tours.PriceTiers(ctx, id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    slots, err := h.SlotRepo.ListByTourAndDate(ctx, id, date)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    out := make([]slotView, 0, len(slots))
    for _, s := range slots {
        out = append(out, slotView{ID: s.ID, StartTime: s.StartTime, EndTime: s.EndTime,
            Remaining: s.Remaining(), PriceOverrideCents: s.PriceOverrideCents})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "tour_id":          tour.ID,
        "title":            tour.Title,
        "currency":         tour.Currency,
        "min_participants": tour.MinParticipants,
        "prices":           prices,
        "date":             date,
        "slots":            out,
    })
}
