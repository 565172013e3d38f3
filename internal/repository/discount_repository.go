package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// DiscountRepo reads discount codes and maintains their usage counter.
type DiscountRepo struct {
	db *sql.DB
}

func NewDiscountRepo(db *sql.DB) *DiscountRepo { return &DiscountRepo{db: db} }

// GetByCode looks a code up case-insensitively.  Inactive codes are
// returned too; the evaluator decides what to do with them.
func (r *DiscountRepo) GetByCode(ctx context.Context, code string) (model.DiscountCode, error) {
	return r.getByCode(ctx, r.db, code)
}

func (r *DiscountRepo) GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.DiscountCode, error) {
	return r.getByCode(ctx, tx, code)
}

func (r *DiscountRepo) getByCode(ctx context.Context, q querier, code string) (model.DiscountCode, error) {
	var d model.DiscountCode
	var minOrder, maxDisc, usage, perUser sql.NullInt64
	var from, until sql.NullTime
	err := q.QueryRowContext(ctx,
		`SELECT id, code, type, value, min_order_cents, max_discount_cents, usage_limit, per_user_limit,
		        valid_from, valid_until, is_active, used_count, created_at, updated_at
		 FROM discount_codes WHERE code = ?`, strings.ToUpper(strings.TrimSpace(code))).
		Scan(&d.ID, &d.Code, &d.Type, &d.Value, &minOrder, &maxDisc, &usage, &perUser,
			&from, &until, &d.IsActive, &d.UsedCount, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.MinOrderCents = nullInt64(minOrder)
	d.MaxDiscountCents = nullInt64(maxDisc)
	d.UsageLimit = nullInt(usage)
	d.PerUserLimit = nullInt(perUser)
	d.ValidFrom = nullTime(from)
	d.ValidUntil = nullTime(until)
	return d, nil
}

// CountUserCheckouts returns how many distinct checkouts of userID carried
// the code.  Cancelled orders still count as a use.
func (r *DiscountRepo) CountUserCheckouts(ctx context.Context, codeID, userID uint64) (int, error) {
	return r.countUserCheckouts(ctx, r.db, codeID, userID)
}

func (r *DiscountRepo) CountUserCheckoutsTx(ctx context.Context, tx *sql.Tx, codeID, userID uint64) (int, error) {
	return r.countUserCheckouts(ctx, tx, codeID, userID)
}

func (r *DiscountRepo) countUserCheckouts(ctx context.Context, q querier, codeID, userID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT checkout_id) FROM orders WHERE discount_code_id = ? AND user_id = ?`,
		codeID, userID).Scan(&n)
	return n, err
}

// IncrementUsageTx adds one to used_count unless that would pass
// usage_limit.  It reports whether the increment happened.
func (r *DiscountRepo) IncrementUsageTx(ctx context.Context, tx *sql.Tx, codeID uint64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE discount_codes SET used_count = used_count + 1, updated_at = ?
		 WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)`, now, codeID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Create inserts a code (upper-cased); used by seeding and tests.
func (r *DiscountRepo) Create(ctx context.Context, d *model.DiscountCode) error {
	now := time.Now().UTC()
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO discount_codes (code, type, value, min_order_cents, max_discount_cents, usage_limit,
		 per_user_limit, valid_from, valid_until, is_active, used_count, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.Code, d.Type, d.Value.StringFixed(2), d.MinOrderCents, d.MaxDiscountCents, d.UsageLimit,
		d.PerUserLimit, d.ValidFrom, d.ValidUntil, d.IsActive, d.UsedCount, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	d.CreatedAt, d.UpdatedAt = now, now
	return nil
}
