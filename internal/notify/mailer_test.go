package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/logging"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/queue"
)

func event() queue.BookingConfirmedEvent {
	return queue.BookingConfirmedEvent{
		Reference:     "TBQWERTY12",
		CustomerName:  "Sipho Dlamini",
		CustomerEmail: "sipho@example.com",
		TourTitle:     "Cape Point Drive",
		TourDate:      "2026-12-01",
		Participants:  model.Participants{"adult": {Quantity: 3, UnitPriceCents: 50000}},
		TotalCents:    150000,
		Currency:      "ZAR",
		TransactionID: "99",
	}
}

func TestConfirmation(t *testing.T) {
	m, err := Confirmation("bookings@example.com", event())
	require.NoError(t, err)
	assert.Equal(t, "sipho@example.com", m.To)
	assert.Equal(t, "Booking confirmed: TBQWERTY12", m.Subject)
	assert.Contains(t, m.Body, "Participants: 3")
	assert.Contains(t, m.Body, "1500.00 ZAR")
}

func TestConfirmationNeedsRecipient(t *testing.T) {
	ev := event()
	ev.CustomerEmail = " "
	_, err := Confirmation("x@example.com", ev)
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestFileMailerWritesOutbox(t *testing.T) {
	dir := t.TempDir()
	h := Handler(NewFileMailer(dir, logging.Discard()), "bookings@example.com")
	require.NoError(t, h(context.Background(), event()))

	files, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "To: sipho@example.com\r\n")
	assert.Contains(t, string(b), "Subject: Booking confirmed: TBQWERTY12")
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "123.45", FormatCents(12345))
	assert.Equal(t, "-1.00", FormatCents(-100))
}
