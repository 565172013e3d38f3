package checkout

// Allocate splits a discount across line items.  Every item gets an equal
// share and the leftover cents go one each to the first items in cart
// order.  A share larger than its item's subtotal is cut down and the
// excess handed, in cart order, to items that still have room.  The result
// always sums to min(discount, Σ subtotals).
func Allocate(discountCents int64, subtotals []int64) []int64 {
	shares := make([]int64, len(subtotals))
	if discountCents <= 0 || len(subtotals) == 0 {
		return shares
	}
	var sum int64
	for _, s := range subtotals {
		sum += s
	}
	if discountCents > sum {
		discountCents = sum
	}
	n := int64(len(subtotals))
	base, rem := discountCents/n, discountCents%n
	var carry int64
	for i, s := range subtotals {
		share := base
		if int64(i) < rem {
			share++
		}
		if share > s {
			carry += share - s
			share = s
		}
		shares[i] = share
	}
	for i := 0; carry > 0 && i < len(shares); i++ {
		room := subtotals[i] - shares[i]
		if room <= 0 {
			continue
		}
		if room > carry {
			room = carry
		}
		shares[i] += room
		carry -= room
	}
	return shares
}
