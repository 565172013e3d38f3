// Package reconcile applies gateway payment notifications to orders.
//
// Exactly-once is carried by the gateway_notifications claim row: the claim,
// the payment rows and the order transitions commit together, so a retry
// after any failure reprocesses from scratch and a retry after success hits
// the unique claim and is a no-op.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/lock"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/payfast"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
)

var (
	ErrSignatureVerificationFailed = errors.New("notification could not be verified")
	ErrMalformedNotification       = errors.New("notification is malformed")
	ErrMissingOrderReference       = errors.New("notification carries no usable order reference")
	ErrUnknownOrder                = errors.New("notification references an unknown order")
	ErrAmountMismatch              = errors.New("notification amount does not match the orders")
)

// Status is what Handle did with a notification.
type Status int

const (
	Applied Status = iota
	AlreadyProcessed
	Ignored
	InFlight
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case AlreadyProcessed:
		return "already_processed"
	case Ignored:
		return "ignored"
	case InFlight:
		return "in_flight"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome describes a handled notification.
type Outcome struct {
	Status        Status
	TransactionID string
	State         payfast.PaymentState
	Confirmed     []uint64
	Skipped       []uint64
}

// Verifier authenticates received fields.
type Verifier interface {
	Verify(ctx context.Context, f payfast.Fields) error
}

// Publisher announces confirmed bookings.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

type Engine struct {
	db        *sql.DB
	verifier  Verifier
	orders    *repository.OrderRepo
	payments  *repository.PaymentRepo
	tours     *repository.TourRepo
	locker    *lock.Locker
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewEngine wires the engine.  locker and publisher may be nil.
func NewEngine(db *sql.DB, verifier Verifier, orders *repository.OrderRepo, payments *repository.PaymentRepo,
	tours *repository.TourRepo, locker *lock.Locker, publisher Publisher, log logrus.FieldLogger) *Engine {
	return &Engine{
		db: db, verifier: verifier, orders: orders, payments: payments, tours: tours,
		locker: locker, publisher: publisher, log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Handle verifies and applies one notification.
func (e *Engine) Handle(ctx context.Context, f payfast.Fields) (Outcome, error) {
	if err := e.verifier.Verify(ctx, f); err != nil {
		if errors.Is(err, payfast.ErrSignatureVerificationFailed) ||
			errors.Is(err, payfast.ErrMerchantMismatch) ||
			errors.Is(err, payfast.ErrRemoteValidationFailed) {
			e.log.WithFields(logrus.Fields{
				"reason":        err.Error(),
				"pf_payment_id": f.Get(payfast.FieldPaymentID),
				"m_payment_id":  f.Get(payfast.FieldMerchantPaymentID),
				"merchant_id":   f.Get(payfast.FieldMerchantID),
			}).Warn("payfast notification rejected")
			return Outcome{}, fmt.Errorf("%w: %v", ErrSignatureVerificationFailed, err)
		}
		return Outcome{}, err
	}

	n, err := payfast.NewNotification(f)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	out := Outcome{TransactionID: n.TransactionID, State: n.State}
	log := e.log.WithFields(logrus.Fields{"pf_payment_id": n.TransactionID, "payment_status": n.RawState})

	switch n.State {
	case payfast.StateComplete:
	case payfast.StatePending, payfast.StateFailed, payfast.StateCancelled, payfast.StateUnknown:
		log.Info("payfast notification acknowledged without changes")
		out.Status = Ignored
		return out, nil
	default:
		return out, fmt.Errorf("%w: unhandled payment state %v", ErrMalformedNotification, n.State)
	}

	ids, err := n.OrderIDs()
	if err != nil || len(ids) == 0 {
		log.WithField("custom_str1", n.OrderRef).Warn("payfast notification without order reference")
		return out, ErrMissingOrderReference
	}

	release, err := e.locker.TryAcquire(ctx, "itn:"+n.TransactionID)
	switch {
	case errors.Is(err, lock.ErrBusy):
		log.Info("payfast notification already in flight")
		out.Status = InFlight
		return out, nil
	case err != nil:
		log.WithError(err).Warn("itn lock unavailable; continuing without it")
	}
	defer release()

	var events []queue.BookingConfirmedEvent
	err = database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		events = events[:0]
		out.Confirmed, out.Skipped = nil, nil
		now := e.now()

		claim := &model.GatewayNotification{
			GatewayTransactionID: n.TransactionID,
			PaymentState:         n.State.String(),
			OrderIDs:             payfast.FormatOrderIDs(ids),
			AmountCents:          n.AmountGrossCents,
			ProcessedAt:          now,
		}
		if err := e.payments.ClaimNotificationTx(ctx, tx, claim); err != nil {
			return err
		}

		orders, err := e.orders.GetByIDsTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(orders) != len(ids) {
			return fmt.Errorf("%w: want %d orders, found %d", ErrUnknownOrder, len(ids), len(orders))
		}
		var expected int64
		for _, o := range orders {
			expected += o.TotalCents
		}
		if n.AmountGrossCents != expected {
			return fmt.Errorf("%w: gross %s, orders total %s", ErrAmountMismatch,
				payfast.FormatAmount(n.AmountGrossCents), payfast.FormatAmount(expected))
		}

		payload := f.PayloadJSON()
		for _, o := range orders {
			olog := log.WithFields(logrus.Fields{
				"order_id":     o.ID,
				"reference":    o.Reference,
				"amount_cents": o.TotalCents,
				"amount_gross": payfast.FormatAmount(n.AmountGrossCents),
			})
			if o.Status == model.OrderCancelled {
				olog.Warn("payment received for cancelled order; refund needed")
				out.Skipped = append(out.Skipped, o.ID)
				continue
			}
			ok, err := e.orders.MarkConfirmedTx(ctx, tx, o.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				// Money arrived under a new transaction id but no payment row is written.
				olog.WithField("order_payment_status", o.PaymentStatus).Warn("payment received for already settled order; refund needed")
				out.Skipped = append(out.Skipped, o.ID)
				continue
			}
			paidAt := now
			p := &model.Payment{
				OrderID:              o.ID,
				GatewayTransactionID: n.TransactionID,
				AmountCents:          o.TotalCents,
				Currency:             o.Currency,
				Status:               model.PaymentCompleted,
				RawPayload:           payload,
				PayerEmail:           n.PayerEmail,
				PaidAt:               &paidAt,
				CreatedAt:            now,
			}
			if err := e.payments.CreateTx(ctx, tx, p); err != nil {
				return fmt.Errorf("record payment for order %d: %w", o.ID, err)
			}
			if err := e.tours.IncrementBookingsTx(ctx, tx, o.TourID, now); err != nil {
				return err
			}
			title := ""
			if t, err := e.tours.GetByIDTx(ctx, tx, o.TourID); err == nil {
				title = t.Title
			}
			out.Confirmed = append(out.Confirmed, o.ID)
			events = append(events, confirmedEvent(o, title, n, now))
		}
		return nil
	})
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		log.Info("payfast notification already processed")
		out.Status = AlreadyProcessed
		out.Confirmed, out.Skipped = nil, nil
		return out, nil
	}
	if err != nil {
		log.WithError(err).Error("payfast notification not applied")
		return out, err
	}

	out.Status = Applied
	log.WithFields(logrus.Fields{"confirmed": out.Confirmed, "skipped": out.Skipped}).Info("payfast notification applied")
	e.publish(ctx, events)
	return out, nil
}

func (e *Engine) publish(ctx context.Context, events []queue.BookingConfirmedEvent) {
	if e.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := e.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
			e.log.WithError(err).WithField("order_id", ev.OrderID).Warn("booking.confirmed not published")
		}
	}
}

func confirmedEvent(o model.Order, title string, n payfast.Notification, at time.Time) queue.BookingConfirmedEvent {
	return queue.BookingConfirmedEvent{
		OrderID:       o.ID,
		Reference:     o.Reference,
		CheckoutID:    o.CheckoutID,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		TourID:        o.TourID,
		TourTitle:     title,
		TourDate:      o.TourDate,
		TimeSlotID:    o.TimeSlotID,
		Participants:  o.Participants,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		TransactionID: n.TransactionID,
		PayerEmail:    n.PayerEmail,
		ConfirmedAt:   at.Format(time.RFC3339),
	}
}
