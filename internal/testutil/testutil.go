// Package testutil builds throwaway SQLite databases from the embedded
// schema and seeds catalog rows for package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// OpenDB returns a migrated database in a temp directory.  A single
// connection is used so concurrent test goroutines queue on the pool
// instead of tripping over SQLite's writer lock.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite("file:" + filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	return db
}

// Tomorrow is a tour date that is always in the future.
func Tomorrow() string { return time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02") }

// SeedTour inserts an active ZAR tour with the given minimum group size and
// price tiers.
func SeedTour(t testing.TB, db *sql.DB, minParticipants int, tiers map[string]int64) model.Tour {
	t.Helper()
	tour := model.Tour{Title: "Table Mountain Hike", Currency: "ZAR", MinParticipants: minParticipants, IsActive: true}
	require.NoError(t, repository.NewTourRepo(db).Create(context.Background(), &tour, tiers))
	return tour
}

// SeedSlot inserts an active 09:00-12:00 slot.
func SeedSlot(t testing.TB, db *sql.DB, tourID uint64, date string, available, booked int) model.TimeSlot {
	t.Helper()
	s := model.TimeSlot{
		TourID: tourID, SlotDate: date, StartTime: "09:00", EndTime: "12:00",
		AvailableSpots: available, BookedSpots: booked, IsActive: true,
	}
	require.NoError(t, repository.NewTimeSlotRepo(db).Create(context.Background(), &s))
	return s
}

// DiscountOpt tweaks a seeded discount code.
type DiscountOpt func(*model.DiscountCode)

func WithMaxDiscount(cents int64) DiscountOpt {
	return func(d *model.DiscountCode) { d.MaxDiscountCents = &cents }
}

func WithMinOrder(cents int64) DiscountOpt {
	return func(d *model.DiscountCode) { d.MinOrderCents = &cents }
}

func WithUsageLimit(n int) DiscountOpt {
	return func(d *model.DiscountCode) { d.UsageLimit = &n }
}

func WithPerUserLimit(n int) DiscountOpt {
	return func(d *model.DiscountCode) { d.PerUserLimit = &n }
}

func WithWindow(from, until *time.Time) DiscountOpt {
	return func(d *model.DiscountCode) { d.ValidFrom, d.ValidUntil = from, until }
}

func Inactive() DiscountOpt {
	return func(d *model.DiscountCode) { d.IsActive = false }
}

// SeedDiscount inserts an active code.  value is a percent for percentage
// codes and currency units for fixed codes.
func SeedDiscount(t testing.TB, db *sql.DB, code, typ, value string, opts ...DiscountOpt) model.DiscountCode {
	t.Helper()
	d := model.DiscountCode{Code: code, Type: typ, Value: decimal.RequireFromString(value), IsActive: true}
	for _, o := range opts {
		o(&d)
	}
	require.NoError(t, repository.NewDiscountRepo(db).Create(context.Background(), &d))
	return d
}

// SeedUser inserts a customer with a low bcrypt cost.
func SeedUser(t testing.TB, db *sql.DB, email, role string) uint64 {
	t.Helper()
	id, err := repository.NewUserRepo(db).Create(context.Background(), email, "password123", role, 4)
	require.NoError(t, err)
	return id
}

// BookedSpots reads the current booked count of a slot.
func BookedSpots(t testing.TB, db *sql.DB, slotID uint64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT booked_spots FROM time_slots WHERE id = ?`, slotID).Scan(&n))
	return n
}

// CountRows returns SELECT COUNT(*) FROM table [WHERE where].
func CountRows(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}
