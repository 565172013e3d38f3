package cart_test

import (
	"context"
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/cart"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/testutil"
)

func newService(db *sql.DB) *cart.Service {
	return cart.NewService(db, repository.NewCartRepo(db), repository.NewTourRepo(db), repository.NewTimeSlotRepo(db))
}

func TestAddItemPricesServerSide(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000, "child": 500})
	svc := newService(db)
	key := cart.Key{SessionID: "sess-1"}

	it, err := svc.AddItem(context.Background(), key, cart.ItemInput{
		TourID: tour.ID, TourDate: testutil.Tomorrow(), Participants: map[string]int{"adult": 2, "child": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), it.SubtotalCents)
	assert.Equal(t, int64(1000), it.Participants["adult"].UnitPriceCents)

	view, err := svc.Get(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, cart.Summary{Items: 1, Participants: 3, SubtotalCents: 2500}, view.Totals)
}

func TestAddItemReplacesSameTourAndDate(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000})
	svc := newService(db)
	key := cart.Key{SessionID: "sess-2"}
	date := testutil.Tomorrow()
	ctx := context.Background()

	first, err := svc.AddItem(ctx, key, cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": 2}})
	require.NoError(t, err)
	second, err := svc.AddItem(ctx, key, cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": 5}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	view, err := svc.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Totals.Participants)
	assert.Equal(t, int64(5000), view.Totals.SubtotalCents)
}

func TestSlotOverrideReplacesAdultPrice(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000, "child": 500})
	date := testutil.Tomorrow()
	slot := testutil.SeedSlot(t, db, tour.ID, date, 10, 0)
	_, err := db.Exec(`UPDATE time_slots SET price_override_cents = 1200 WHERE id = ?`, slot.ID)
	require.NoError(t, err)

	it, err := newService(db).AddItem(context.Background(), cart.Key{SessionID: "s"}, cart.ItemInput{
		TourID: tour.ID, TourDate: date, TimeSlotID: &slot.ID, Participants: map[string]int{"adult": 1, "child": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1700), it.SubtotalCents)
}

func TestAddItemValidation(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 3, map[string]int64{"adult": 1000})
	other := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000})
	date := testutil.Tomorrow()
	foreign := testutil.SeedSlot(t, db, other.ID, date, 10, 0)
	svc := newService(db)
	key := cart.Key{SessionID: "s"}
	ctx := context.Background()

	_, err := svc.AddItem(ctx, key, cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": 2}})
	assert.ErrorIs(t, err, cart.ErrBelowMinimumParticipants)

	cases := []struct {
		name  string
		in    cart.ItemInput
		field string
	}{
		{"bad date", cart.ItemInput{TourID: tour.ID, TourDate: "tomorrow", Participants: map[string]int{"adult": 3}}, "tour_date"},
		{"unknown tour", cart.ItemInput{TourID: 999, TourDate: date, Participants: map[string]int{"adult": 3}}, "tour_id"},
		{"unknown tier", cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"vip": 3}}, "participants"},
		{"negative quantity", cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": -1}}, "participants"},
		{"quantity above cap", cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": model.MaxTierQuantity + 1}}, "participants"},
		{"slot of another tour", cart.ItemInput{TourID: tour.ID, TourDate: date, TimeSlotID: &foreign.ID, Participants: map[string]int{"adult": 3}}, "time_slot_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, key, tc.in)
			var ve *cart.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	_, err = svc.AddItem(ctx, cart.Key{}, cart.ItemInput{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": 3}})
	assert.ErrorIs(t, err, cart.ErrMissingSession)
}

func TestUpdateRemoveClear(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 1000})
	svc := newService(db)
	uid := testutil.SeedUser(t, db, "amy@example.com", model.RoleCustomer)
	key := cart.Key{SessionID: "s", UserID: &uid}
	ctx := context.Background()

	a, err := svc.AddItem(ctx, key, cart.ItemInput{TourID: tour.ID, TourDate: testutil.Tomorrow(), Participants: map[string]int{"adult": 1}})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, key, cart.ItemInput{TourID: tour.ID, TourDate: "2099-01-01", Participants: map[string]int{"adult": 1}})
	require.NoError(t, err)

	upd, err := svc.UpdateItem(ctx, key, a.ID, map[string]int{"adult": 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), upd.SubtotalCents)

	require.NoError(t, svc.RemoveItem(ctx, key, a.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, key, a.ID), cart.ErrItemNotFound)

	_, err = svc.UpdateItem(ctx, key, a.ID, map[string]int{"adult": 1}, nil)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	require.NoError(t, svc.Clear(ctx, key))
	view, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, testutil.CountRows(t, db, "carts", "user_id = ?", uid))
}

func TestAddItemRejectsOverflowingQuantity(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 2})
	pricey := testutil.SeedTour(t, db, 1, map[string]int64{"adult": math.MaxInt64 / 2})
	svc := newService(db)
	key := cart.Key{SessionID: "s-overflow"}
	ctx := context.Background()
	date := testutil.Tomorrow()

	for _, in := range []cart.ItemInput{
		{TourID: tour.ID, TourDate: date, Participants: map[string]int{"adult": 1 << 62}},
		{TourID: pricey.ID, TourDate: date, Participants: map[string]int{"adult": 3}},
	} {
		_, err := svc.AddItem(ctx, key, in)
		var ve *cart.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "participants", ve.Field)
	}
	view, err := svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAddItemRejectsZeroTotal(t *testing.T) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 0})
	_, err := newService(db).AddItem(context.Background(), cart.Key{SessionID: "s"}, cart.ItemInput{
		TourID: tour.ID, TourDate: testutil.Tomorrow(), Participants: map[string]int{"adult": 2},
	})
	var ve *cart.ValidationError
	require.ErrorAs(t, err, &ve)
}
