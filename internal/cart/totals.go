package cart

import "github.com/iliyamo/tour-booking/internal/model"

// Summary is the computed aggregate of a cart.
type Summary struct {
	Items         int   `json:"items"`
	Participants  int   `json:"participants"`
	SubtotalCents int64 `json:"subtotal_cents"`
}

// Totals recomputes the aggregate from the participant breakdown of each
// item.  Cached or client supplied subtotals are ignored.
func Totals(items []model.CartItem) Summary {
	s := Summary{Items: len(items)}
	for _, it := range items {
		s.Participants += it.Participants.Count()
		s.SubtotalCents += it.Participants.SubtotalCents()
	}
	return s
}
