// Package queue defines the booking.confirmed message and the background
// consumer that fans it out to the notification and invoice collaborators.
package queue

import "github.com/iliyamo/tour-booking/internal/model"

// BookingConfirmedQueue is the durable queue confirmations are sent to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per order when its payment is
// reconciled.  It carries enough for the mailer and invoice writer to work
// without reading the primary database.
type BookingConfirmedEvent struct {
	OrderID       uint64             `json:"order_id"`
	Reference     string             `json:"reference"`
	CheckoutID    string             `json:"checkout_id"`
	UserID        *uint64            `json:"user_id,omitempty"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	TourID        uint64             `json:"tour_id"`
	TourTitle     string             `json:"tour_title"`
	TourDate      string             `json:"tour_date"`
	TimeSlotID    *uint64            `json:"time_slot_id,omitempty"`
	Participants  model.Participants `json:"participants"`
	SubtotalCents int64              `json:"subtotal_cents"`
	DiscountCents int64              `json:"discount_cents"`
	TotalCents    int64              `json:"total_cents"`
	Currency      string             `json:"currency"`
	TransactionID string             `json:"transaction_id"`
	PayerEmail    string             `json:"payer_email"`
	ConfirmedAt   string             `json:"confirmed_at"`
}
