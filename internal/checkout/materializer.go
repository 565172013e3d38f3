// Package checkout turns carts into pending orders and cancels orders,
// keeping time slot capacity in step with both.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/cart"
	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/discount"
	"github.com/iliyamo/tour-booking/internal/inventory"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/utils"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrReferenceExhausted = errors.New("could not generate a unique booking reference")
)

const referenceAttempts = 5

// Customer is the buyer as entered at checkout.  UserID is nil for guests.
type Customer struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	UserID    *uint64 `json:"-"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Customer) validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return &cart.ValidationError{Field: "first_name", Message: "is required"}
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return &cart.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return nil
}

// Materializer converts a cart into pending orders in one transaction.
type Materializer struct {
	db        *sql.DB
	carts     *cart.Service
	ledger    *inventory.Ledger
	discounts *discount.Evaluator
	orders    *repository.OrderRepo
	tours     *repository.TourRepo
	log       logrus.FieldLogger
	now       func() time.Time
	newRef    func() (string, error)
}

func NewMaterializer(db *sql.DB, carts *cart.Service, ledger *inventory.Ledger, discounts *discount.Evaluator,
	orders *repository.OrderRepo, tours *repository.TourRepo, log logrus.FieldLogger) *Materializer {
	return &Materializer{
		db: db, carts: carts, ledger: ledger, discounts: discounts, orders: orders, tours: tours, log: log,
		now:    func() time.Time { return time.Now().UTC() },
		newRef: utils.NewReference,
	}
}

// Materialize reserves inventory for every cart line, creates one
// pending/pending order per line sharing a fresh checkout id, clears the
// cart and records discount usage.  Nothing survives a failure at any step.
//
// dec, when non-nil, is re-validated against the subtotal computed here so
// a stale client-side decision can never be applied.
func (m *Materializer) Materialize(ctx context.Context, key cart.Key, cust Customer, dec *discount.Decision) ([]model.Order, error) {
	if err := cust.validate(); err != nil {
		return nil, err
	}
	checkoutID := uuid.NewString()
	var orders []model.Order
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		c, items, err := m.carts.ItemsTx(ctx, tx, key)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		subtotals := make([]int64, len(items))
		var subtotal int64
		for i, it := range items {
			line, ok := it.Participants.CheckedSubtotalCents()
			if !ok || line <= 0 || line > math.MaxInt64-subtotal {
				return &cart.ValidationError{Field: "participants", Message: fmt.Sprintf("cart line %d total is out of range", it.ID)}
			}
			subtotals[i] = line
			subtotal += line
		}

		var applied *discount.Decision
		if dec != nil && dec.Code != "" {
			fresh, err := m.discounts.ValidateTx(ctx, tx, dec.Code, subtotal, cust.UserID)
			if err != nil {
				return err
			}
			applied = &fresh
		}
		var discountCents int64
		if applied != nil {
			discountCents = applied.DiscountCents
		}
		shares := Allocate(discountCents, subtotals)

		now := m.now()
		orders = make([]model.Order, 0, len(items))
		for i, it := range items {
			tour, err := m.tours.GetByIDTx(ctx, tx, it.TourID)
			if errors.Is(err, repository.ErrNotFound) {
				return &cart.ValidationError{Field: "tour_id", Message: fmt.Sprintf("tour %d is no longer available", it.TourID)}
			}
			if err != nil {
				return err
			}
			if it.Participants.Count() < tour.MinParticipants {
				return fmt.Errorf("%w: tour %d", cart.ErrBelowMinimumParticipants, tour.ID)
			}
			if it.TimeSlotID != nil {
				if err := m.ledger.Reserve(ctx, tx, *it.TimeSlotID, it.Participants.Count()); err != nil {
					return err
				}
			}
			ref, err := m.reference(ctx, tx)
			if err != nil {
				return err
			}
			o := model.Order{
				Reference:     ref,
				CheckoutID:    checkoutID,
				UserID:        cust.UserID,
				CustomerName:  cust.FullName(),
				CustomerEmail: strings.ToLower(strings.TrimSpace(cust.Email)),
				TourID:        it.TourID,
				TimeSlotID:    it.TimeSlotID,
				TourDate:      it.TourDate,
				Participants:  it.Participants,
				SubtotalCents: subtotals[i],
				DiscountCents: shares[i],
				TotalCents:    subtotals[i] - shares[i],
				Currency:      tour.Currency,
				Status:        model.OrderPending,
				PaymentStatus: model.PaymentStatusPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if applied != nil {
				o.DiscountCodeID = &applied.CodeID
			}
			if err := m.orders.CreateTx(ctx, tx, &o); err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			orders = append(orders, o)
		}
		if err := m.carts.ClearTx(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if applied != nil {
			if err := m.discounts.RecordUsage(ctx, tx, applied.CodeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var total int64
	for _, o := range orders {
		total += o.TotalCents
	}
	m.log.WithFields(logrus.Fields{
		"checkout_id": checkoutID,
		"orders":      len(orders),
		"total_cents": total,
	}).Info("checkout materialized")
	return orders, nil
}

func (m *Materializer) reference(ctx context.Context, tx *sql.Tx) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref, err := m.newRef()
		if err != nil {
			return "", err
		}
		taken, err := m.orders.ReferenceExistsTx(ctx, tx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", ErrReferenceExhausted
}
