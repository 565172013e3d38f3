package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// OrderRepo persists orders.  Status changes are conditional updates keyed
// on the expected current state so a lost race shows up as zero affected
// rows instead of a silent overwrite.
type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, reference, checkout_id, user_id, customer_name, customer_email, tour_id, time_slot_id,
	tour_date, participants, subtotal_cents, discount_cents, tax_cents, total_cents, currency, discount_code_id,
	status, payment_status, confirmed_at, cancelled_at, deleted_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var uid, slot, code sql.NullInt64
	var confirmed, cancelled, deleted sql.NullTime
	err := row.Scan(&o.ID, &o.Reference, &o.CheckoutID, &uid, &o.CustomerName, &o.CustomerEmail, &o.TourID, &slot,
		&o.TourDate, &o.Participants, &o.SubtotalCents, &o.DiscountCents, &o.TaxCents, &o.TotalCents, &o.Currency, &code,
		&o.Status, &o.PaymentStatus, &confirmed, &cancelled, &deleted, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.UserID = nullUint64(uid)
	o.TimeSlotID = nullUint64(slot)
	o.DiscountCodeID = nullUint64(code)
	o.ConfirmedAt = nullTime(confirmed)
	o.CancelledAt = nullTime(cancelled)
	o.DeletedAt = nullTime(deleted)
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReferenceExistsTx reports whether a booking reference is taken.
func (r *OrderRepo) ReferenceExistsTx(ctx context.Context, tx *sql.Tx, ref string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE reference = ?`, ref).Scan(&n)
	return n > 0, err
}

// CreateTx inserts o and fills in its id.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (reference, checkout_id, user_id, customer_name, customer_email, tour_id, time_slot_id,
		 tour_date, participants, subtotal_cents, discount_cents, tax_cents, total_cents, currency, discount_code_id,
		 status, payment_status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.Reference, o.CheckoutID, o.UserID, o.CustomerName, o.CustomerEmail, o.TourID, o.TimeSlotID,
		o.TourDate, o.Participants, o.SubtotalCents, o.DiscountCents, o.TaxCents, o.TotalCents, o.Currency, o.DiscountCodeID,
		o.Status, o.PaymentStatus, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID returns a non-deleted order.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *OrderRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
	return r.getByID(ctx, tx, id)
}

func (r *OrderRepo) getByID(ctx context.Context, q querier, id uint64) (model.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

// GetByIDsTx loads the given orders in id order.  Missing ids are simply
// absent from the result.
func (r *OrderRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE deleted_at IS NULL AND id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListByCheckout returns every order of one materialization.
func (r *OrderRepo) ListByCheckout(ctx context.Context, checkoutID string) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE checkout_id = ? AND deleted_at IS NULL ORDER BY id`, checkoutID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListByUser returns a customer's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? AND deleted_at IS NULL ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// MarkConfirmedTx moves a pending/pending order to confirmed/paid.  It
// reports false when the order was not in that state.
func (r *OrderRepo) MarkConfirmedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_status = ?, confirmed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND payment_status = ?`,
		model.OrderConfirmed, model.PaymentStatusPaid, at, at, id, model.OrderPending, model.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkCancelledTx cancels a pending or confirmed order.  It reports false
// when the order had already left those states.
func (r *OrderRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, cancelled_at = ?, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		model.OrderCancelled, at, at, id, model.OrderPending, model.OrderConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SoftDelete hides an order from every read path.  Paid orders are never
// hard-deleted.
func (r *OrderRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, at, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
