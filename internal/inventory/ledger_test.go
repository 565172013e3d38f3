package inventory_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/inventory"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/testutil"
)

func setup(t *testing.T, available, booked int) (*sql.DB, *inventory.Ledger, uint64) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000})
	slot := testutil.SeedSlot(t, db, tour.ID, testutil.Tomorrow(), available, booked)
	return db, inventory.NewLedger(repository.NewTimeSlotRepo(db)), slot.ID
}

func TestReserveWithinCapacity(t *testing.T) {
	db, l, slotID := setup(t, 5, 1)
	ctx := context.Background()

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Reserve(ctx, tx, slotID, 4)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, testutil.BookedSpots(t, db, slotID))

	left, err := l.Remaining(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestReserveOverCapacityLeavesRowUntouched(t *testing.T) {
	db, l, slotID := setup(t, 2, 2)
	ctx := context.Background()

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Reserve(ctx, tx, slotID, 1)
	})
	assert.ErrorIs(t, err, inventory.ErrCapacityExceeded)
	assert.Equal(t, 2, testutil.BookedSpots(t, db, slotID))
}

func TestReserveUnknownSlot(t *testing.T) {
	db, l, _ := setup(t, 2, 0)
	ctx := context.Background()

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Reserve(ctx, tx, 9999, 1)
	})
	assert.ErrorIs(t, err, inventory.ErrTimeSlotNotFound)
}

func TestReserveRejectsNonPositiveCount(t *testing.T) {
	db, l, slotID := setup(t, 2, 0)
	ctx := context.Background()
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Reserve(ctx, tx, slotID, 0)
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidCount)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	db, l, slotID := setup(t, 10, 3)
	ctx := context.Background()

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Release(ctx, tx, slotID, 2)
	}))
	assert.Equal(t, 1, testutil.BookedSpots(t, db, slotID))

	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Release(ctx, tx, slotID, 5)
	}))
	assert.Equal(t, 0, testutil.BookedSpots(t, db, slotID))

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return l.Release(ctx, tx, 4242, 1)
	})
	assert.ErrorIs(t, err, inventory.ErrTimeSlotNotFound)
}

func TestRollbackUndoesReservation(t *testing.T) {
	db, l, slotID := setup(t, 4, 0)
	ctx := context.Background()

	boom := errors.New("boom")
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := l.Reserve(ctx, tx, slotID, 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, testutil.BookedSpots(t, db, slotID))
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	const available = 7
	db, l, slotID := setup(t, available, 0)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		reserved int64
		rejected int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			count := n%3 + 1
			err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
				return l.Reserve(ctx, tx, slotID, count)
			})
			switch {
			case err == nil:
				atomic.AddInt64(&reserved, int64(count))
			case errors.Is(err, inventory.ErrCapacityExceeded):
				atomic.AddInt64(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	booked := testutil.BookedSpots(t, db, slotID)
	assert.LessOrEqual(t, reserved, int64(available))
	assert.Equal(t, int(reserved), booked)
	assert.Positive(t, rejected)
}
