package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sum(v []int64) int64 {
	var s int64
	for _, x := range v {
		s += x
	}
	return s
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		name      string
		discount  int64
		subtotals []int64
		want      []int64
	}{
		{"single item", 300, []int64{2000}, []int64{300}},
		{"even split", 300, []int64{1000, 1000, 1000}, []int64{100, 100, 100}},
		{"remainder to first items", 100, []int64{1000, 1000, 1000}, []int64{34, 33, 33}},
		{"two cent remainder", 101, []int64{500, 500, 500}, []int64{34, 34, 33}},
		{"excess carried to items with room", 900, []int64{100, 2000, 2000}, []int64{100, 500, 300}},
		{"capped at subtotal", 5000, []int64{1000, 500}, []int64{1000, 500}},
		{"no discount", 0, []int64{1000}, []int64{0}},
		{"no items", 100, nil, []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Allocate(tc.discount, tc.subtotals)
			assert.Equal(t, tc.want, got)
			for i := range got {
				assert.LessOrEqual(t, got[i], tc.subtotals[i])
			}
		})
	}
}

func TestAllocateConservesCents(t *testing.T) {
	subtotals := []int64{333, 1, 9999, 20, 4500, 7}
	total := sum(subtotals)
	for d := int64(0); d <= total+10; d += 37 {
		got := Allocate(d, subtotals)
		want := d
		if want > total {
			want = total
		}
		assert.Equal(t, want, sum(got), "discount %d", d)
	}
}
