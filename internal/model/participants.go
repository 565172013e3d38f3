package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"sort"
)

// MaxTierQuantity caps the quantity of a single tier on one line.
const MaxTierQuantity = 100

// TierLine is the quantity booked for one price tier and the unit price in
// effect when the line was priced.
type TierLine struct {
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// Participants maps a price tier name (adult, child, ...) to its line.  It
// is stored as a JSON text column on cart_items and orders.
type Participants map[string]TierLine

// Count is the sum of all quantities.
func (p Participants) Count() int {
	n := 0
	for _, l := range p {
		n += l.Quantity
	}
	return n
}

// SubtotalCents is Σ quantity × unit price.
func (p Participants) SubtotalCents() int64 {
	var total int64
	for _, l := range p {
		total += int64(l.Quantity) * l.UnitPriceCents
	}
	return total
}

// CheckedSubtotalCents is SubtotalCents for lines that came from storage or
// a client.  ok is false when any quantity or price is out of range or the
// sum overflows int64.
func (p Participants) CheckedSubtotalCents() (total int64, ok bool) {
	for _, l := range p {
		if l.Quantity <= 0 || l.Quantity > MaxTierQuantity || l.UnitPriceCents < 0 {
			return 0, false
		}
		if l.UnitPriceCents > (math.MaxInt64-total)/int64(l.Quantity) {
			return 0, false
		}
		total += int64(l.Quantity) * l.UnitPriceCents
	}
	return total, true
}

// Tiers returns the tier names in a stable order.
func (p Participants) Tiers() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Value implements driver.Valuer.
func (p Participants) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]TierLine(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Participants) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = Participants{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.New("participants: unsupported column type")
	}
	m := map[string]TierLine{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = m
	return nil
}
