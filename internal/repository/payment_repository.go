package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/model"
)

// PaymentRepo writes payment audit rows and the per-transaction claim that
// guards reconciliation.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// ClaimNotificationTx inserts the claim row for a gateway transaction.  The
// unique index on gateway_transaction_id makes the second of two concurrent
// deliveries fail here; that failure is reported as ErrAlreadyProcessed.
func (r *PaymentRepo) ClaimNotificationTx(ctx context.Context, tx *sql.Tx, n *model.GatewayNotification) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO gateway_notifications (gateway_transaction_id, payment_state, order_ids, amount_cents, processed_at)
		 VALUES (?,?,?,?,?)`,
		n.GatewayTransactionID, n.PaymentState, n.OrderIDs, n.AmountCents, n.ProcessedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrAlreadyProcessed
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// NotificationProcessed reports whether a claim exists for txnID.
func (r *PaymentRepo) NotificationProcessed(ctx context.Context, txnID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gateway_notifications WHERE gateway_transaction_id = ?`, txnID).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a payment row for one order.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (order_id, gateway_transaction_id, amount_cents, currency, status, raw_payload,
		 payer_email, paid_at, created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.OrderID, p.GatewayTransactionID, p.AmountCents, p.Currency, p.Status, p.RawPayload,
		p.PayerEmail, p.PaidAt, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByOrder returns all payment rows of an order, oldest first.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, gateway_transaction_id, amount_cents, currency, status, raw_payload, payer_email, paid_at, created_at
		 FROM payments WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		var paid sql.NullTime
		if err := rows.Scan(&p.ID, &p.OrderID, &p.GatewayTransactionID, &p.AmountCents, &p.Currency, &p.Status,
			&p.RawPayload, &p.PayerEmail, &paid, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.PaidAt = nullTime(paid)
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByTransaction counts payment rows written for a gateway transaction.
func (r *PaymentRepo) CountByTransaction(ctx context.Context, txnID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE gateway_transaction_id = ?`, txnID).Scan(&n)
	return n, err
}

// HasCompletedTx reports whether an order has a completed payment.
func (r *PaymentRepo) HasCompletedTx(ctx context.Context, tx *sql.Tx, orderID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE order_id = ? AND status = ?`, orderID, model.PaymentCompleted).Scan(&n)
	return n > 0, err
}

