// Package cart holds a session's tour selections until checkout.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/tour-booking/internal/database"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
)

// Key identifies a cart.  SessionID comes from the cart cookie; UserID is
// set when the shopper is signed in.
type Key struct {
	SessionID string
	UserID    *uint64
}

// ItemInput is what a shopper submits for a line.  Only quantities are
// accepted; prices are always looked up here.
type ItemInput struct {
	TourID       uint64         `json:"tour_id"`
	TourDate     string         `json:"tour_date"`
	TimeSlotID   *uint64        `json:"time_slot_id,omitempty"`
	Participants map[string]int `json:"participants"`
}

// View is a cart with its computed totals.
type View struct {
	Items  []model.CartItem `json:"items"`
	Totals Summary          `json:"totals"`
}

type Service struct {
	db    *sql.DB
	carts *repository.CartRepo
	tours *repository.TourRepo
	slots *repository.TimeSlotRepo
	now   func() time.Time
}

func NewService(db *sql.DB, carts *repository.CartRepo, tours *repository.TourRepo, slots *repository.TimeSlotRepo) *Service {
	return &Service{db: db, carts: carts, tours: tours, slots: slots, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the cart for key; a cart that was never written is empty.
func (s *Service) Get(ctx context.Context, key Key) (View, error) {
	if key.SessionID == "" {
		return View{Items: []model.CartItem{}}, nil
	}
	c, err := s.carts.FindBySession(ctx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return View{Items: []model.CartItem{}}, nil
	}
	if err != nil {
		return View{}, err
	}
	items, err := s.carts.Items(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return View{Items: items, Totals: Totals(items)}, nil
}

// AddItem prices in and stores it.  A line for the same tour and date is
// replaced rather than duplicated.
func (s *Service) AddItem(ctx context.Context, key Key, in ItemInput) (model.CartItem, error) {
	if key.SessionID == "" {
		return model.CartItem{}, ErrMissingSession
	}
	priced, err := s.price(ctx, in)
	if err != nil {
		return model.CartItem{}, err
	}
	var out model.CartItem
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		c, err := s.cartForWrite(ctx, tx, key)
		if err != nil {
			return err
		}
		out, err = s.upsert(ctx, tx, c.ID, priced)
		return err
	})
	return out, err
}

// UpdateItem re-prices an existing line with new quantities and, when
// given, a different time slot.
func (s *Service) UpdateItem(ctx context.Context, key Key, itemID uint64, participants map[string]int, slotID *uint64) (model.CartItem, error) {
	if key.SessionID == "" {
		return model.CartItem{}, ErrMissingSession
	}
	c, err := s.carts.FindBySession(ctx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CartItem{}, ErrItemNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	out, err := s.carts.GetItem(ctx, c.ID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CartItem{}, ErrItemNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	if slotID == nil {
		slotID = out.TimeSlotID
	}
	priced, err := s.price(ctx, ItemInput{TourID: out.TourID, TourDate: out.TourDate, TimeSlotID: slotID, Participants: participants})
	if err != nil {
		return model.CartItem{}, err
	}
	priced.ID, priced.CartID, priced.CreatedAt = out.ID, c.ID, out.CreatedAt
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.carts.UpdateItemTx(ctx, tx, priced)
	})
	return priced, err
}

// RemoveItem deletes one line.
func (s *Service) RemoveItem(ctx context.Context, key Key, itemID uint64) error {
	c, err := s.carts.FindBySession(ctx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}
	if err := s.carts.DeleteItem(ctx, c.ID, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, key Key) error {
	c, err := s.carts.FindBySession(ctx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.carts.Clear(ctx, c.ID)
}

// ItemsTx loads the cart and its lines on the checkout transaction.
func (s *Service) ItemsTx(ctx context.Context, tx *sql.Tx, key Key) (model.Cart, []model.CartItem, error) {
	c, err := s.carts.FindBySessionTx(ctx, tx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Cart{}, nil, nil
	}
	if err != nil {
		return model.Cart{}, nil, err
	}
	items, err := s.carts.ItemsTx(ctx, tx, c.ID)
	return c, items, err
}

// ClearTx empties a cart on the checkout transaction.
func (s *Service) ClearTx(ctx context.Context, tx *sql.Tx, cartID uint64) error {
	return s.carts.ClearTx(ctx, tx, cartID)
}

func (s *Service) cartForWrite(ctx context.Context, tx *sql.Tx, key Key) (model.Cart, error) {
	c, err := s.carts.FindBySessionTx(ctx, tx, key.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		c, err = s.carts.CreateTx(ctx, tx, key.SessionID, key.UserID, s.now())
		if database.IsDuplicateKey(err) {
			c, err = s.carts.FindBySessionTx(ctx, tx, key.SessionID)
		}
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if key.UserID != nil && c.UserID == nil {
		if err := s.carts.AttachUserTx(ctx, tx, c.ID, *key.UserID, s.now()); err != nil {
			return model.Cart{}, err
		}
		c.UserID = key.UserID
	}
	return c, nil
}

func (s *Service) upsert(ctx context.Context, tx *sql.Tx, cartID uint64, it model.CartItem) (model.CartItem, error) {
	it.CartID = cartID
	cur, err := s.carts.FindItemTx(ctx, tx, cartID, it.TourID, it.TourDate)
	switch {
	case err == nil:
		it.ID, it.CreatedAt = cur.ID, cur.CreatedAt
		return it, s.carts.UpdateItemTx(ctx, tx, it)
	case !errors.Is(err, repository.ErrNotFound):
		return it, err
	}
	err = s.carts.InsertItemTx(ctx, tx, &it)
	if database.IsDuplicateKey(err) {
		cur, err = s.carts.FindItemTx(ctx, tx, cartID, it.TourID, it.TourDate)
		if err != nil {
			return it, err
		}
		it.ID, it.CreatedAt = cur.ID, cur.CreatedAt
		return it, s.carts.UpdateItemTx(ctx, tx, it)
	}
	return it, err
}

// price validates in against the catalog and builds the stored line.
func (s *Service) price(ctx context.Context, in ItemInput) (model.CartItem, error) {
	if _, err := time.Parse("2006-01-02", in.TourDate); err != nil {
		return model.CartItem{}, invalid("tour_date", "must be YYYY-MM-DD")
	}
	if len(in.Participants) == 0 {
		return model.CartItem{}, invalid("participants", "at least one participant tier is required")
	}
	tour, err := s.tours.GetByID(ctx, in.TourID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CartItem{}, invalid("tour_id", "unknown tour")
	}
	if err != nil {
		return model.CartItem{}, err
	}
	tiers, err := s.tours.PriceTiers(ctx, tour.ID)
	if err != nil {
		return model.CartItem{}, err
	}
	var override *int64
	if in.TimeSlotID != nil {
		slot, err := s.slots.GetByID(ctx, *in.TimeSlotID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.CartItem{}, invalid("time_slot_id", "unknown time slot")
		}
		if err != nil {
			return model.CartItem{}, err
		}
		if slot.TourID != tour.ID || slot.SlotDate != in.TourDate || !slot.IsActive {
			return model.CartItem{}, invalid("time_slot_id", "time slot does not match tour and date")
		}
		override = slot.PriceOverrideCents
	}
	parts := model.Participants{}
	for tier, qty := range in.Participants {
		if qty <= 0 {
			return model.CartItem{}, invalid("participants", "quantity for %q must be positive", tier)
		}
		if qty > model.MaxTierQuantity {
			return model.CartItem{}, invalid("participants", "quantity for %q must be at most %d", tier, model.MaxTierQuantity)
		}
		price, ok := tiers[tier]
		if !ok {
			return model.CartItem{}, invalid("participants", "unknown price tier %q", tier)
		}
		if tier == model.TierAdult && override != nil {
			price = *override
		}
		parts[tier] = model.TierLine{Quantity: qty, UnitPriceCents: price}
	}
	if parts.Count() < tour.MinParticipants {
		return model.CartItem{}, fmt.Errorf("%w: need %d, got %d", ErrBelowMinimumParticipants, tour.MinParticipants, parts.Count())
	}
	subtotal, ok := parts.CheckedSubtotalCents()
	if !ok || subtotal <= 0 {
		return model.CartItem{}, invalid("participants", "line total is out of range")
	}
	now := s.now()
	return model.CartItem{
		TourID:        tour.ID,
		TourDate:      in.TourDate,
		TimeSlotID:    in.TimeSlotID,
		Participants:  parts,
		SubtotalCents: subtotal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
