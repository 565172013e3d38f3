package model

import "time"

// Cart is the pre-order aggregate of one browser session.
type Cart struct {
	ID        uint64
	SessionID string
	UserID    *uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a single (tour, date) line.  SubtotalCents is cached from
// server-side prices at the time the line was last written.
type CartItem struct {
	ID            uint64       `json:"id"`
	CartID        uint64       `json:"cart_id"`
	TourID        uint64       `json:"tour_id"`
	TourDate      string       `json:"tour_date"`
	TimeSlotID    *uint64      `json:"time_slot_id,omitempty"`
	Participants  Participants `json:"participants"`
	SubtotalCents int64        `json:"subtotal_cents"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
