package model

import "time"

// Payment row status values.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment is the audit record of one gateway transaction applied to one
// order.  Rows are only written by the reconciliation engine.
//
// Fields:
//  GatewayTransactionID – pf_payment_id reported by the gateway.
//  RawPayload           – received ITN fields as a JSON array, in order.
type Payment struct {
	ID                   uint64     `json:"id"`
	OrderID              uint64     `json:"order_id"`
	GatewayTransactionID string     `json:"gateway_transaction_id"`
	AmountCents          int64      `json:"amount_cents"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	RawPayload           string     `json:"-"`
	PayerEmail           string     `json:"payer_email"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// GatewayNotification is the claim row written once per applied gateway
// transaction.  Its unique transaction id is what makes reconciliation
// exactly-once.
type GatewayNotification struct {
	ID                   uint64
	GatewayTransactionID string
	PaymentState         string
	OrderIDs             string
	AmountCents          int64
	ProcessedAt          time.Time
}
