package checkout

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/inventory"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
)

// Actor is whoever asks for a cancellation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// Canceller moves orders to cancelled and hands their spots back.
type Canceller struct {
	db     *sql.DB
	orders *repository.OrderRepo
	ledger *inventory.Ledger
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewCanceller(db *sql.DB, orders *repository.OrderRepo, ledger *inventory.Ledger, log logrus.FieldLogger) *Canceller {
	return &Canceller{db: db, orders: orders, ledger: ledger, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Cancel cancels a pending or confirmed order whose tour date is still
// ahead and releases its reserved spots in the same transaction.
// Cancelling an already cancelled order returns it unchanged.  Customers
// may only cancel their own orders.
func (c *Canceller) Cancel(ctx context.Context, orderID uint64, actor Actor) (model.Order, error) {
	var out model.Order
	released, changed := false, false
	err := database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		o, err := c.orders.GetByIDTx(ctx, tx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if !actor.Admin && (o.UserID == nil || *o.UserID != actor.UserID) {
			return repository.ErrForbidden
		}
		out = o
		if o.Status == model.OrderCancelled {
			return nil
		}
		now := c.now()
		if o.Status != model.OrderPending && o.Status != model.OrderConfirmed {
			return ErrNotCancellable
		}
		if o.TourDate <= now.Format("2006-01-02") {
			return ErrNotCancellable
		}
		ok, err := c.orders.MarkCancelledTx(ctx, tx, o.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotCancellable
		}
		if o.TimeSlotID != nil {
			if err := c.ledger.Release(ctx, tx, *o.TimeSlotID, o.Headcount()); err != nil {
				return err
			}
			released = true
		}
		changed = true
		out.Status = model.OrderCancelled
		out.CancelledAt = &now
		out.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	if changed {
		entry := c.log.WithFields(logrus.Fields{
			"order_id":       out.ID,
			"reference":      out.Reference,
			"payment_status": out.PaymentStatus,
			"released":       released,
		})
		if out.PaymentStatus == model.PaymentStatusPaid {
			entry.Warn("paid order cancelled; refund must be issued manually")
		} else {
			entry.Info("order cancelled")
		}
	}
	return out, nil
}
