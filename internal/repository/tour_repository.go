package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// TourRepo reads the catalog tables owned by the catalog service.  The only
// write is the aggregate booking counter bumped on confirmation.
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

// GetByID returns ErrNotFound for unknown or inactive tours.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (model.Tour, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *TourRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Tour, error) {
	return r.getByID(ctx, tx, id)
}

func (r *TourRepo) getByID(ctx context.Context, q querier, id uint64) (model.Tour, error) {
	var t model.Tour
	err := q.QueryRowContext(ctx,
		`SELECT id, title, currency, min_participants, bookings_count, is_active, created_at, updated_at
		 FROM tours WHERE id = ? AND is_active = 1`, id).
		Scan(&t.ID, &t.Title, &t.Currency, &t.MinParticipants, &t.BookingsCount, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// PriceTiers returns tier name → price in cents for a tour.
func (r *TourRepo) PriceTiers(ctx context.Context, tourID uint64) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tier, price_cents FROM tour_price_tiers WHERE tour_id = ?`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var tier string
		var cents int64
		if err := rows.Scan(&tier, &cents); err != nil {
			return nil, err
		}
		out[tier] = cents
	}
	return out, rows.Err()
}

// IncrementBookingsTx bumps tours.bookings_count by one.
func (r *TourRepo) IncrementBookingsTx(ctx context.Context, tx *sql.Tx, tourID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE tours SET bookings_count = bookings_count + 1, updated_at = ? WHERE id = ?`, now, tourID)
	return err
}

// Create inserts a tour and its price tiers; used by seeding and tests.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour, tiers map[string]int64) error {
	now := time.Now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tours (title, currency, min_participants, bookings_count, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		t.Title, t.Currency, t.MinParticipants, t.BookingsCount, t.IsActive, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	for tier, cents := range tiers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tour_price_tiers (tour_id, tier, price_cents) VALUES (?,?,?)`,
			t.ID, tier, cents); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}
