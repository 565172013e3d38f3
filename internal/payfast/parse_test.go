package payfast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormKeepsReceiptOrder(t *testing.T) {
	body := []byte("z_last=1&a_first=hello+world&email_address=a%2Bb%40example.com&empty=&flag")
	f, err := ParseForm(body)
	require.NoError(t, err)
	require.Len(t, f, 5)
	assert.Equal(t, []string{"z_last", "a_first", "email_address", "empty", "flag"},
		[]string{f[0].Key, f[1].Key, f[2].Key, f[3].Key, f[4].Key})
	assert.Equal(t, "hello world", f.Get("a_first"))
	assert.Equal(t, "a+b@example.com", f.Get("email_address"))
	assert.True(t, f.Has("empty"))

	_, err = ParseForm([]byte("bad=%zz"))
	assert.Error(t, err)
}

func TestEncodeRoundTripsThroughParseForm(t *testing.T) {
	var f Fields
	f.Add("item_name", "Cape ~ Point & more")
	f.Add("amount", "10.00")
	got, err := ParseForm([]byte(f.Encode()))
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseOrderIDs(t *testing.T) {
	ids, err := ParseOrderIDs(" 12, 13,12 ")
	require.NoError(t, err)
	assert.Equal(t, []uint64{12, 13}, ids)
	assert.Equal(t, "12,13", FormatOrderIDs(ids))

	for _, bad := range []string{"", "  ", "12,x", "0", "-1", "12,,13"} {
		_, err := ParseOrderIDs(bad)
		assert.ErrorIs(t, err, ErrMissingOrderReference, bad)
	}
}

func TestParseStateAndAmount(t *testing.T) {
	assert.Equal(t, StateComplete, ParseState("COMPLETE"))
	assert.Equal(t, StateComplete, ParseState(" complete "))
	assert.Equal(t, StatePending, ParseState("PENDING"))
	assert.Equal(t, StateFailed, ParseState("FAILED"))
	assert.Equal(t, StateCancelled, ParseState("CANCELLED"))
	assert.Equal(t, StateUnknown, ParseState("REFUNDED"))
	assert.Equal(t, "COMPLETE", StateComplete.String())

	c, err := ParseAmount("1700.00")
	require.NoError(t, err)
	assert.Equal(t, int64(170000), c)
	c, err = ParseAmount("17.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1750), c)
	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrBadAmount)
	assert.Equal(t, "17.00", FormatAmount(1700))
	assert.Equal(t, "0.05", FormatAmount(5))
}

func TestNewNotification(t *testing.T) {
	var f Fields
	f.Add("pf_payment_id", "991")
	f.Add("payment_status", "COMPLETE")
	f.Add("amount_gross", "17.00")
	f.Add("email_address", "pay@example.com")
	f.Add("custom_str1", "4,5")
	n, err := NewNotification(f)
	require.NoError(t, err)
	assert.Equal(t, "991", n.TransactionID)
	assert.Equal(t, StateComplete, n.State)
	assert.Equal(t, int64(1700), n.AmountGrossCents)
	ids, err := n.OrderIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5}, ids)
	assert.JSONEq(t, `[["pf_payment_id","991"],["payment_status","COMPLETE"],["amount_gross","17.00"],["email_address","pay@example.com"],["custom_str1","4,5"]]`, f.PayloadJSON())

	_, err = NewNotification(f.Without("pf_payment_id"))
	assert.ErrorIs(t, err, ErrMissingTransactionID)
}
