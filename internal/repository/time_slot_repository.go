package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// TimeSlotRepo accesses time_slots.  The capacity columns are only ever
// changed through the single-statement conditional updates below so that
// concurrent checkouts cannot both pass a stale availability read.
type TimeSlotRepo struct {
	db *sql.DB
}

func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

const timeSlotColumns = `id, tour_id, slot_date, start_time, end_time, available_spots, booked_spots,
	is_active, price_override_cents, created_at, updated_at`

func scanTimeSlot(row interface{ Scan(...any) error }) (model.TimeSlot, error) {
	var s model.TimeSlot
	var override sql.NullInt64
	err := row.Scan(&s.ID, &s.TourID, &s.SlotDate, &s.StartTime, &s.EndTime, &s.AvailableSpots,
		&s.BookedSpots, &s.IsActive, &override, &s.CreatedAt, &s.UpdatedAt)
	s.PriceOverrideCents = nullInt64(override)
	return s, err
}

// IncrementBookedTx adds n to booked_spots only if the slot is active and
// the result stays within available_spots.  It returns whether the row was
// updated.
func (r *TimeSlotRepo) IncrementBookedTx(ctx context.Context, tx *sql.Tx, id uint64, n int, now time.Time) (bool, error) {
	const q = `UPDATE time_slots
	           SET booked_spots = booked_spots + ?, updated_at = ?
	           WHERE id = ? AND is_active = 1 AND booked_spots + ? <= available_spots`
	res, err := tx.ExecContext(ctx, q, n, now, id, n)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff == 1, nil
}

// DecrementBookedTx subtracts n from booked_spots, flooring at zero.  It
// returns ErrNotFound when the slot does not exist.
func (r *TimeSlotRepo) DecrementBookedTx(ctx context.Context, tx *sql.Tx, id uint64, n int, now time.Time) error {
	const q = `UPDATE time_slots
	           SET booked_spots = CASE WHEN booked_spots > ? THEN booked_spots - ? ELSE 0 END, updated_at = ?
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, n, n, now, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		// MySQL reports 0 affected rows when the values did not change
		// (booked already 0 and same updated_at); fall back to an existence read.
		if _, err := r.getByID(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// GetByIDTx reads a slot inside tx.
func (r *TimeSlotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.TimeSlot, error) {
	return r.getByID(ctx, tx, id)
}

// GetByID reads a slot outside any transaction.
func (r *TimeSlotRepo) GetByID(ctx context.Context, id uint64) (model.TimeSlot, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *TimeSlotRepo) getByID(ctx context.Context, q querier, id uint64) (model.TimeSlot, error) {
	s, err := scanTimeSlot(q.QueryRowContext(ctx, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// ListByTourAndDate returns the active slots of a tour on date ordered by
// start time.
func (r *TimeSlotRepo) ListByTourAndDate(ctx context.Context, tourID uint64, date string) ([]model.TimeSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timeSlotColumns+` FROM time_slots
		 WHERE tour_id = ? AND slot_date = ? AND is_active = 1
		 ORDER BY start_time`, tourID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TimeSlot
	for rows.Next() {
		s, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a slot; used by the operator CLI and tests.
func (r *TimeSlotRepo) Create(ctx context.Context, s *model.TimeSlot) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO time_slots (tour_id, slot_date, start_time, end_time, available_spots, booked_spots,
		 is_active, price_override_cents, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.TourID, s.SlotDate, s.StartTime, s.EndTime, s.AvailableSpots, s.BookedSpots,
		s.IsActive, s.PriceOverrideCents, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}
