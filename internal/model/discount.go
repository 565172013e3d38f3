package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount type column values.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountCode mirrors the discount_codes table.  Value is a percentage for
// percentage codes and an amount in currency units for fixed codes.
type DiscountCode struct {
	ID               uint64
	Code             string
	Type             string
	Value            decimal.Decimal
	MinOrderCents    *int64
	MaxDiscountCents *int64
	UsageLimit       *int
	PerUserLimit     *int
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	IsActive         bool
	UsedCount        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
