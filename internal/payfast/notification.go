package payfast

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentState is the payment_status reported in an ITN.
type PaymentState int

const (
	StateUnknown PaymentState = iota
	StateComplete
	StatePending
	StateFailed
	StateCancelled
)

// ParseState maps the gateway's payment_status string.
func ParseState(s string) PaymentState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COMPLETE":
		return StateComplete
	case "PENDING":
		return StatePending
	case "FAILED":
		return StateFailed
	case "CANCELLED":
		return StateCancelled
	}
	return StateUnknown
}

func (s PaymentState) String() string {
	switch s {
	case StateComplete:
		return "COMPLETE"
	case StatePending:
		return "PENDING"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	case StateUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("PaymentState(%d)", int(s))
}

// Field names read from an ITN.
const (
	FieldMerchantID        = "merchant_id"
	FieldPaymentID         = "pf_payment_id"
	FieldMerchantPaymentID = "m_payment_id"
	FieldPaymentStatus     = "payment_status"
	FieldAmountGross       = "amount_gross"
	FieldEmail             = "email_address"
	FieldOrderRef          = "custom_str1"
)

var (
	ErrMissingOrderReference = errors.New("notification carries no usable order reference")
	ErrMissingTransactionID  = errors.New("notification carries no transaction id")
	ErrBadAmount             = errors.New("notification amount is not a valid number")
)

// Notification is the typed view of a verified ITN.
type Notification struct {
	TransactionID     string
	MerchantPaymentID string
	State             PaymentState
	RawState          string
	AmountGrossCents  int64
	PayerEmail        string
	OrderRef          string
	Fields            Fields
}

// NewNotification extracts the typed view.  Order ids are parsed lazily by
// OrderIDs since only complete payments need them.
func NewNotification(f Fields) (Notification, error) {
	n := Notification{
		TransactionID:     strings.TrimSpace(f.Get(FieldPaymentID)),
		MerchantPaymentID: f.Get(FieldMerchantPaymentID),
		RawState:          f.Get(FieldPaymentStatus),
		PayerEmail:        strings.TrimSpace(f.Get(FieldEmail)),
		OrderRef:          f.Get(FieldOrderRef),
		Fields:            f,
	}
	n.State = ParseState(n.RawState)
	if n.TransactionID == "" {
		return n, ErrMissingTransactionID
	}
	if raw := strings.TrimSpace(f.Get(FieldAmountGross)); raw != "" {
		cents, err := ParseAmount(raw)
		if err != nil {
			return n, err
		}
		n.AmountGrossCents = cents
	}
	return n, nil
}

// OrderIDs parses the comma separated order id list written at checkout.
func (n Notification) OrderIDs() ([]uint64, error) {
	return ParseOrderIDs(n.OrderRef)
}

// ParseOrderIDs parses "12,13,14".  Duplicates are dropped, order kept.
func ParseOrderIDs(s string) ([]uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMissingOrderReference
	}
	seen := map[uint64]bool{}
	var out []uint64
	for _, p := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingOrderReference, s)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// FormatOrderIDs is the inverse of ParseOrderIDs.
func FormatOrderIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseAmount turns "1700.00" into 170000 cents.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// FormatAmount renders cents with exactly two decimals.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// PayloadJSON serialises the fields as an ordered [[key,value],...] array
// for audit storage.
func (f Fields) PayloadJSON() string {
	pairs := make([][2]string, len(f))
	for i, kv := range f {
		pairs[i] = [2]string{kv.Key, kv.Value}
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return "[]"
	}
	return string(b)
}
