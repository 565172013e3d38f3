package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// CartRepo persists carts and their line items.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// FindBySessionTx returns the cart for a session id or ErrNotFound.
func (r *CartRepo) FindBySessionTx(ctx context.Context, tx *sql.Tx, sessionID string) (model.Cart, error) {
	return r.findBySession(ctx, tx, sessionID)
}

func (r *CartRepo) FindBySession(ctx context.Context, sessionID string) (model.Cart, error) {
	return r.findBySession(ctx, r.db, sessionID)
}

func (r *CartRepo) findBySession(ctx context.Context, q querier, sessionID string) (model.Cart, error) {
	var c model.Cart
	var uid sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT id, session_id, user_id, created_at, updated_at FROM carts WHERE session_id = ?`, sessionID).
		Scan(&c.ID, &c.SessionID, &uid, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	c.UserID = nullUint64(uid)
	return c, err
}

// CreateTx inserts an empty cart.  A duplicate session id surfaces as the
// raw driver error; callers retry the lookup.
func (r *CartRepo) CreateTx(ctx context.Context, tx *sql.Tx, sessionID string, userID *uint64, now time.Time) (model.Cart, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO carts (session_id, user_id, created_at, updated_at) VALUES (?,?,?,?)`,
		sessionID, userID, now, now)
	if err != nil {
		return model.Cart{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Cart{}, err
	}
	return model.Cart{ID: uint64(id), SessionID: sessionID, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

// AttachUserTx records the authenticated owner of an anonymous cart.
func (r *CartRepo) AttachUserTx(ctx context.Context, tx *sql.Tx, cartID, userID uint64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE carts SET user_id = ?, updated_at = ? WHERE id = ?`, userID, now, cartID)
	return err
}

const cartItemColumns = `id, cart_id, tour_id, tour_date, time_slot_id, participants, subtotal_cents, created_at, updated_at`

func scanCartItem(row interface{ Scan(...any) error }) (model.CartItem, error) {
	var it model.CartItem
	var slot sql.NullInt64
	err := row.Scan(&it.ID, &it.CartID, &it.TourID, &it.TourDate, &slot, &it.Participants,
		&it.SubtotalCents, &it.CreatedAt, &it.UpdatedAt)
	it.TimeSlotID = nullUint64(slot)
	return it, err
}

// ItemsTx lists the lines of a cart in insertion order.
func (r *CartRepo) ItemsTx(ctx context.Context, tx *sql.Tx, cartID uint64) ([]model.CartItem, error) {
	return r.items(ctx, tx, cartID)
}

func (r *CartRepo) Items(ctx context.Context, cartID uint64) ([]model.CartItem, error) {
	return r.items(ctx, r.db, cartID)
}

func (r *CartRepo) items(ctx context.Context, q querier, cartID uint64) ([]model.CartItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindItemTx looks a line up by its natural key (cart, tour, date).
func (r *CartRepo) FindItemTx(ctx context.Context, tx *sql.Tx, cartID, tourID uint64, date string) (model.CartItem, error) {
	it, err := scanCartItem(tx.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? AND tour_id = ? AND tour_date = ?`,
		cartID, tourID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return it, ErrNotFound
	}
	return it, err
}

// GetItem returns a line only if it belongs to cartID.
func (r *CartRepo) GetItem(ctx context.Context, cartID, itemID uint64) (model.CartItem, error) {
	it, err := scanCartItem(r.db.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return it, ErrNotFound
	}
	return it, err
}

// InsertItemTx adds a line and fills in its id.
func (r *CartRepo) InsertItemTx(ctx context.Context, tx *sql.Tx, it *model.CartItem) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, tour_id, tour_date, time_slot_id, participants, subtotal_cents, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		it.CartID, it.TourID, it.TourDate, it.TimeSlotID, it.Participants, it.SubtotalCents, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// UpdateItemTx overwrites the mutable columns of a line.
func (r *CartRepo) UpdateItemTx(ctx context.Context, tx *sql.Tx, it model.CartItem) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE cart_items SET time_slot_id = ?, participants = ?, subtotal_cents = ?, updated_at = ?
		 WHERE id = ? AND cart_id = ?`,
		it.TimeSlotID, it.Participants, it.SubtotalCents, it.UpdatedAt, it.ID, it.CartID)
	return err
}

// DeleteItem removes a line owned by cartID; ErrNotFound when nothing matched.
func (r *CartRepo) DeleteItem(ctx context.Context, cartID, itemID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearTx removes every line of a cart.
func (r *CartRepo) ClearTx(ctx context.Context, tx *sql.Tx, cartID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}

func (r *CartRepo) Clear(ctx context.Context, cartID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return err
}
