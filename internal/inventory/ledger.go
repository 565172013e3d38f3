// Package inventory guards time slot capacity.  Every mutation is a single
// conditional UPDATE run on the caller's transaction, so capacity holds
// without any in-process locking.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/tour-booking/internal/repository"
)

var (
	ErrCapacityExceeded = errors.New("time slot capacity exceeded")
	ErrTimeSlotNotFound = errors.New("time slot not found")
	ErrInvalidCount     = errors.New("spot count must be positive")
)

// Ledger reserves and releases time slot spots.
type Ledger struct {
	slots *repository.TimeSlotRepo
	now   func() time.Time
}

func NewLedger(slots *repository.TimeSlotRepo) *Ledger {
	return &Ledger{slots: slots, now: func() time.Time { return time.Now().UTC() }}
}

// Reserve books count spots on a slot.  It fails with ErrCapacityExceeded
// and leaves the row untouched when the spots are not free, and with
// ErrTimeSlotNotFound when the slot is missing or inactive.
func (l *Ledger) Reserve(ctx context.Context, tx *sql.Tx, slotID uint64, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	ok, err := l.slots.IncrementBookedTx(ctx, tx, slotID, count, l.now())
	if err != nil {
		return fmt.Errorf("reserve slot %d: %w", slotID, err)
	}
	if ok {
		return nil
	}
	slot, err := l.slots.GetByIDTx(ctx, tx, slotID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !slot.IsActive) {
		return ErrTimeSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("reserve slot %d: %w", slotID, err)
	}
	return ErrCapacityExceeded
}

// Release returns count spots to a slot, flooring booked_spots at zero.
func (l *Ledger) Release(ctx context.Context, tx *sql.Tx, slotID uint64, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	err := l.slots.DecrementBookedTx(ctx, tx, slotID, count, l.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTimeSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("release slot %d: %w", slotID, err)
	}
	return nil
}

// Remaining reads available minus booked for a slot.
func (l *Ledger) Remaining(ctx context.Context, slotID uint64) (int, error) {
	slot, err := l.slots.GetByID(ctx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrTimeSlotNotFound
	}
	if err != nil {
		return 0, err
	}
	return slot.Remaining(), nil
}
