package model

import "time"

// TimeSlot is a bookable date/time unit of a tour.  BookedSpots never
// exceeds AvailableSpots.
type TimeSlot struct {
	ID                 uint64    `json:"id"`
	TourID             uint64    `json:"tour_id"`
	SlotDate           string    `json:"slot_date"`
	StartTime          string    `json:"start_time"`
	EndTime            string    `json:"end_time"`
	AvailableSpots     int       `json:"available_spots"`
	BookedSpots        int       `json:"booked_spots"`
	IsActive           bool      `json:"is_active"`
	PriceOverrideCents *int64    `json:"price_override_cents,omitempty"`
	CreatedAt          time.Time `json:"-"`
	UpdatedAt          time.Time `json:"-"`
}

// Remaining is the number of spots still free.
func (s TimeSlot) Remaining() int {
	if r := s.AvailableSpots - s.BookedSpots; r > 0 {
		return r
	}
	return 0
}
