// Package invoice renders plain-text receipts for confirmed bookings.
package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-booking/internal/queue"
)

// Render returns the receipt text for one confirmed order.  Amounts are
// formatted through decimal so currency rounding never drifts from cents.
func Render(ev queue.BookingConfirmedEvent) string {
	money := func(c int64) string { return decimal.New(c, -2).StringFixed(2) }

	var b strings.Builder
	fmt.Fprintf(&b, "RECEIPT %s\n", ev.Reference)
	fmt.Fprintf(&b, "Customer: %s <%s>\n", ev.CustomerName, ev.CustomerEmail)
	fmt.Fprintf(&b, "Tour:     %s (%s)\n", ev.TourTitle, ev.TourDate)
	b.WriteString("\n")
	for _, tier := range ev.Participants.Tiers() {
		line := ev.Participants[tier]
		fmt.Fprintf(&b, "  %-10s %3d x %10s = %10s\n", tier, line.Quantity,
			money(line.UnitPriceCents), money(line.UnitPriceCents*int64(line.Quantity)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %12s %s\n", money(ev.SubtotalCents), ev.Currency)
	if ev.DiscountCents > 0 {
		fmt.Fprintf(&b, "Discount: %12s %s\n", "-"+money(ev.DiscountCents), ev.Currency)
	}
	fmt.Fprintf(&b, "Total:    %12s %s\n", money(ev.TotalCents), ev.Currency)
	fmt.Fprintf(&b, "Paid:     %s (txn %s)\n", ev.ConfirmedAt, ev.TransactionID)
	return b.String()
}

// Writer stores receipts as <reference>.txt under Dir.
type Writer struct {
	Dir string
}

func (w Writer) Write(ev queue.BookingConfirmedEvent) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir invoices: %w", err)
	}
	path := filepath.Join(w.Dir, ev.Reference+".txt")
	if err := os.WriteFile(path, []byte(Render(ev)), 0o644); err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}
	return path, nil
}

// Handler adapts w to a queue consumer handler.
func (w Writer) Handler() queue.Handler {
	return func(_ context.Context, ev queue.BookingConfirmedEvent) error {
		_, err := w.Write(ev)
		return err
	}
}
