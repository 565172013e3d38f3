package model

import "time"

// Order lifecycle status values (orders.status).
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
	OrderCompleted = "completed"
)

// Order payment status values (orders.payment_status).
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Order is one tour-date booking created at checkout.  All orders produced
// by a single checkout share CheckoutID and are paid with one gateway
// transaction.
//
// Fields:
//  Reference      – human readable booking reference (TBXXXXXXXX).
//  UserID         – owning customer, nil for guest checkout.
//  Participants   – tier breakdown priced at checkout time.
//  TotalCents     – SubtotalCents - DiscountCents + TaxCents.
//  Status         – lifecycle (pending, confirmed, cancelled, completed).
//  PaymentStatus  – independent payment state (pending, paid, failed, refunded).
type Order struct {
	ID             uint64       `json:"id"`
	Reference      string       `json:"reference"`
	CheckoutID     string       `json:"checkout_id"`
	UserID         *uint64      `json:"user_id,omitempty"`
	CustomerName   string       `json:"customer_name"`
	CustomerEmail  string       `json:"customer_email"`
	TourID         uint64       `json:"tour_id"`
	TimeSlotID     *uint64      `json:"time_slot_id,omitempty"`
	TourDate       string       `json:"tour_date"`
	Participants   Participants `json:"participants"`
	SubtotalCents  int64        `json:"subtotal_cents"`
	DiscountCents  int64        `json:"discount_cents"`
	TaxCents       int64        `json:"tax_cents"`
	TotalCents     int64        `json:"total_cents"`
	Currency       string       `json:"currency"`
	DiscountCodeID *uint64      `json:"discount_code_id,omitempty"`
	Status         string       `json:"status"`
	PaymentStatus  string       `json:"payment_status"`
	ConfirmedAt    *time.Time   `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
	DeletedAt      *time.Time   `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Headcount is the total number of participants on the order.
func (o Order) Headcount() int { return o.Participants.Count() }

// IsPayable reports whether the order is still waiting for its payment.
func (o Order) IsPayable() bool {
	return o.Status == OrderPending && o.PaymentStatus == PaymentStatusPending
}
