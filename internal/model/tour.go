package model

import "time"

// Tour is the catalog entry a booking refers to.  The catalog is owned by
// another service; this one reads it and bumps BookingsCount.
type Tour struct {
	ID              uint64
	Title           string
	Currency        string
	MinParticipants int
	BookingsCount   int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TierAdult is the tier whose price a time slot override replaces.
const TierAdult = "adult"

// PriceTier is one row of tour_price_tiers.
type PriceTier struct {
	ID         uint64
	TourID     uint64
	Tier       string
	PriceCents int64
}
