package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-booking/internal/model"
)

// Type computes the deduction for one kind of discount.  The set of
// implementations is closed to this package.
type Type interface {
	// Deduct returns the discount in cents for subtotal, never more than
	// subtotal itself.
	Deduct(subtotalCents int64) int64
	Name() string
	sealed()
}

// Percentage takes Percent of the subtotal, rounded half away from zero
// to the cent and capped at MaxCents when set.
type Percentage struct {
	Percent  decimal.Decimal
	MaxCents *int64
}

func (p Percentage) Deduct(subtotalCents int64) int64 {
	if subtotalCents <= 0 || !p.Percent.IsPositive() {
		return 0
	}
	d := decimal.NewFromInt(subtotalCents).Mul(p.Percent).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	if p.MaxCents != nil && d > *p.MaxCents {
		d = *p.MaxCents
	}
	return clamp(d, subtotalCents)
}

func (Percentage) Name() string { return model.DiscountPercentage }
func (Percentage) sealed()      {}

// Fixed takes a flat amount off, never more than the subtotal.
type Fixed struct {
	AmountCents int64
}

func (f Fixed) Deduct(subtotalCents int64) int64 {
	if subtotalCents <= 0 || f.AmountCents <= 0 {
		return 0
	}
	return clamp(f.AmountCents, subtotalCents)
}

func (Fixed) Name() string { return model.DiscountFixed }
func (Fixed) sealed()      {}

func clamp(d, max int64) int64 {
	if d > max {
		return max
	}
	if d < 0 {
		return 0
	}
	return d
}

// TypeOf maps a stored code to its Type.  The stored value is a percent for
// percentage codes and currency units for fixed codes.
func TypeOf(c model.DiscountCode) (Type, error) {
	switch c.Type {
	case model.DiscountPercentage:
		return Percentage{Percent: c.Value, MaxCents: c.MaxDiscountCents}, nil
	case model.DiscountFixed:
		return Fixed{AmountCents: c.Value.Shift(2).Round(0).IntPart()}, nil
	}
	return nil, fmt.Errorf("discount code %q: unknown type %q", c.Code, c.Type)
}
