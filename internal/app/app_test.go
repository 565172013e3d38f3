package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/app"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/logging"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/payfast"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/testutil"
)

const passphrase = "salt-and-pepper"

type memPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
}

func (p *memPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type server struct {
	t   *testing.T
	e   *echo.Echo
	pub *memPublisher
}

func newServer(t *testing.T) (*server, model.Tour, model.TimeSlot) {
	db := testutil.OpenDB(t)
	tour := testutil.SeedTour(t, db, 1, map[string]int64{"adult": 45000, "child": 22500})
	slot := testutil.SeedSlot(t, db, tour.ID, testutil.Tomorrow(), 6, 0)

	pub := &memPublisher{}
	e := app.New(app.Deps{
		Config: config.Config{
			JWTSecret:      "test-secret",
			AccessTTLMin:   15,
			RefreshTTLDays: 1,
			BcryptCost:     4,
			PayFast: config.PayFast{
				MerchantID:  "10000100",
				MerchantKey: "46f0cd694581a",
				Passphrase:  passphrase,
				Sandbox:     true,
				NotifyURL:   "http://localhost/v1/payments/payfast/notify",
			},
		},
		DB:        db,
		Publisher: pub,
		Log:       logging.Discard(),
	})
	return &server{t: t, e: e, pub: pub}, tour, slot
}

func (s *server) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) notify(f payfast.Fields) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/payfast/notify", strings.NewReader(f.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type checkoutResp struct {
	CheckoutID string        `json:"checkout_id"`
	Orders     []model.Order `json:"orders"`
	TotalCents int64         `json:"total_cents"`
	Payment    struct {
		Action string            `json:"action"`
		Fields map[string]string `json:"fields"`
		PayURL string            `json:"pay_url"`
	} `json:"payment"`
}

// notification mirrors the gateway's field order for a completed payment.
func notification(checkoutID string, orders []model.Order, total int64) payfast.Fields {
	ids := make([]uint64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	var f payfast.Fields
	f.Add("m_payment_id", checkoutID)
	f.Add("pf_payment_id", "2209871")
	f.Add("payment_status", "COMPLETE")
	f.Add("item_name", "Table Mountain Hike")
	f.Add("item_description", "")
	f.Add("amount_gross", payfast.FormatAmount(total))
	f.Add("amount_fee", "-10.35")
	f.Add("amount_net", payfast.FormatAmount(total-1035))
	f.Add("custom_str1", payfast.FormatOrderIDs(ids))
	f.Add("name_first", "Thandi")
	f.Add("email_address", "thandi@example.com")
	f.Add("merchant_id", "10000100")
	f.Add("signature", payfast.NotificationSignature(f, passphrase))
	return f
}

func TestCheckoutAndNotificationEndToEnd(t *testing.T) {
	s, tour, slot := newServer(t)

	rec := s.do(http.MethodPost, "/v1/auth/register", `{"email":"thandi@example.com","password":"long-enough-pw"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	decode(t, rec, &reg)
	require.NotEmpty(t, reg.Access.Token)

	hdr := map[string]string{
		"Authorization":  "Bearer " + reg.Access.Token,
		"X-Cart-Session": "6f1c2a4e-0b7d-4c1e-9a55-3d2f8e7b9c10",
	}
	add, _ := json.Marshal(map[string]any{
		"tour_id":      tour.ID,
		"tour_date":    slot.SlotDate,
		"time_slot_id": slot.ID,
		"participants": map[string]int{"adult": 2, "child": 1},
	})
	rec = s.do(http.MethodPost, "/v1/cart", string(add), hdr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/checkout", `{"first_name":"Thandi","last_name":"Nkosi","email":"thandi@example.com"}`, hdr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var co checkoutResp
	decode(t, rec, &co)
	require.Len(t, co.Orders, 1)
	assert.Equal(t, int64(2*45000+22500), co.TotalCents)
	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", co.Payment.Action)
	assert.Equal(t, payfast.FormatAmount(co.TotalCents), co.Payment.Fields["amount"])
	assert.NotEmpty(t, co.Payment.Fields["signature"])
	assert.Equal(t, 3, remaining(t, s, slot))

	rec = s.do(http.MethodGet, co.Payment.PayURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="https://sandbox.payfast.co.za/eng/process"`)

	itn := notification(co.CheckoutID, co.Orders, co.TotalCents)

	tampered := notification(co.CheckoutID, co.Orders, co.TotalCents)
	tampered[5].Value = "1.00"
	rec = s.notify(tampered)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request", rec.Body.String())

	rec = s.notify(itn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "OK", rec.Body.String())

	rec = s.notify(itn)
	assert.Equal(t, http.StatusOK, rec.Code, "a replayed notification is acknowledged")
	assert.Len(t, s.pub.events, 1, "a replay publishes nothing")

	rec = s.do(http.MethodGet, "/v1/my-bookings", "", hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Bookings []model.Order `json:"bookings"`
	}
	decode(t, rec, &mine)
	require.Len(t, mine.Bookings, 1)
	assert.Equal(t, model.OrderConfirmed, mine.Bookings[0].Status)
	assert.Equal(t, model.PaymentStatusPaid, mine.Bookings[0].PaymentStatus)

	rec = s.do(http.MethodGet, co.Payment.PayURL, "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCartIsolatedPerSession(t *testing.T) {
	s, tour, slot := newServer(t)
	add, _ := json.Marshal(map[string]any{
		"tour_id": tour.ID, "tour_date": slot.SlotDate, "time_slot_id": slot.ID,
		"participants": map[string]int{"adult": 1},
	})

	rec := s.do(http.MethodPost, "/v1/cart", string(add), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := rec.Header().Get("X-Cart-Session")
	require.NotEmpty(t, session)

	rec = s.do(http.MethodGet, "/v1/cart", "", map[string]string{"X-Cart-Session": session})
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Items []model.CartItem `json:"items"`
	}
	decode(t, rec, &view)
	assert.Len(t, view.Items, 1)

	rec = s.do(http.MethodGet, "/v1/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Empty(t, view.Items)
}

func TestCheckoutBeyondCapacityConflicts(t *testing.T) {
	s, tour, slot := newServer(t)
	hdr := map[string]string{"X-Cart-Session": "0d9e6a3b-5c1f-4a8e-b2d7-91c4f0e3a6b5"}
	add, _ := json.Marshal(map[string]any{
		"tour_id": tour.ID, "tour_date": slot.SlotDate, "time_slot_id": slot.ID,
		"participants": map[string]int{"adult": 7},
	})
	rec := s.do(http.MethodPost, "/v1/cart", string(add), hdr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/checkout", `{"first_name":"Sipho","email":"sipho@example.com"}`, hdr)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, 6, remaining(t, s, slot))
}

func TestHealth(t *testing.T) {
	s, _, _ := newServer(t)
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// remaining reads a slot's free spots through the public availability route.
func remaining(t *testing.T, s *server, slot model.TimeSlot) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/tours/"+strconv.FormatUint(slot.TourID, 10)+"/slots?date="+slot.SlotDate, nil).WithContext(ctx)
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Slots []struct {
			ID        uint64 `json:"id"`
			Remaining int    `json:"remaining"`
		} `json:"slots"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out))
	for _, sl := range out.Slots {
		if sl.ID == slot.ID {
			return sl.Remaining
		}
	}
	t.Fatalf("slot %d not listed", slot.ID)
	return 0
}

func TestAuthRefreshRotatesTokens(t *testing.T) {
	s, _, _ := newServer(t)
	rec := s.do(http.MethodPost, "/v1/auth/register", `{"email":"Naledi@Example.com","password":"long-enough-pw"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/auth/register", `{"email":"naledi@example.com","password":"long-enough-pw"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/auth/login", `{"email":"naledi@example.com","password":"wrong-password"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/auth/login", `{"email":"naledi@example.com","password":"long-enough-pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	decode(t, rec, &pair)
	assert.Equal(t, model.RoleCustomer, pair.User.Role)

	body := `{"refresh_token":"` + pair.Refresh.Token + `"}`
	rec = s.do(http.MethodPost, "/v1/auth/refresh", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/auth/refresh", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a refresh token works once")

	rec = s.do(http.MethodGet, "/v1/admin/orders/1", "", map[string]string{"Authorization": "Bearer " + pair.Access.Token})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
