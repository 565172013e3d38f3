// Package discount validates promo codes and computes deductions.
package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// Decision is an accepted code applied to a subtotal.
type Decision struct {
	CodeID        uint64 `json:"-"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
}

// Evaluator runs the eligibility checks.  Validation is read-only; usage
// is recorded separately by RecordUsage inside the checkout transaction.
type Evaluator struct {
	repo *repository.DiscountRepo
	now  func() time.Time
}

func NewEvaluator(repo *repository.DiscountRepo) *Evaluator {
	return &Evaluator{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source; tests pin it.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Validate checks code against subtotalCents for userID (nil for guests).
func (e *Evaluator) Validate(ctx context.Context, code string, subtotalCents int64, userID *uint64) (Decision, error) {
	c, err := e.repo.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Decision{}, fmt.Errorf("load discount code: %w", err)
	}
	return e.evaluate(c, err == nil, code, subtotalCents, userID, func() (int, error) {
		return e.repo.CountUserCheckouts(ctx, c.ID, *userID)
	})
}

// ValidateTx is Validate on a caller transaction.
func (e *Evaluator) ValidateTx(ctx context.Context, tx *sql.Tx, code string, subtotalCents int64, userID *uint64) (Decision, error) {
	c, err := e.repo.GetByCodeTx(ctx, tx, code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Decision{}, fmt.Errorf("load discount code: %w", err)
	}
	return e.evaluate(c, err == nil, code, subtotalCents, userID, func() (int, error) {
		return e.repo.CountUserCheckoutsTx(ctx, tx, c.ID, *userID)
	})
}

func (e *Evaluator) evaluate(c model.DiscountCode, found bool, raw string, subtotal int64, userID *uint64, priorUses func() (int, error)) (Decision, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !found || !c.IsActive {
		return Decision{}, refuse(KindNotFound, code)
	}
	now := e.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return Decision{}, refuse(KindNotYetValid, code)
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return Decision{}, refuse(KindExpired, code)
	}
	if c.MinOrderCents != nil && subtotal < *c.MinOrderCents {
		return Decision{}, refuse(KindBelowMinimum, code)
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return Decision{}, refuse(KindUsageLimitReached, code)
	}
	if c.PerUserLimit != nil && userID != nil {
		n, err := priorUses()
		if err != nil {
			return Decision{}, fmt.Errorf("count discount uses: %w", err)
		}
		if n >= *c.PerUserLimit {
			return Decision{}, refuse(KindPerUserLimitReached, code)
		}
	}
	typ, err := TypeOf(c)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		CodeID:        c.ID,
		Code:          c.Code,
		Type:          typ.Name(),
		SubtotalCents: subtotal,
		DiscountCents: typ.Deduct(subtotal),
	}, nil
}

// RecordUsage counts one redemption.  The increment and the limit check
// are one statement, so concurrent redemptions cannot overshoot.
func (e *Evaluator) RecordUsage(ctx context.Context, tx *sql.Tx, codeID uint64) error {
	ok, err := e.repo.IncrementUsageTx(ctx, tx, codeID, e.now())
	if err != nil {
		return fmt.Errorf("record discount usage: %w", err)
	}
	if !ok {
		return ErrUsageLimitReached
	}
	return nil
}
