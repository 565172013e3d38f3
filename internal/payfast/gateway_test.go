package payfast

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/checkout"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/logging"
	"github.com/iliyamo/tour-booking/internal/model"
)

func testConfig() config.PayFast {
	return config.PayFast{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		Sandbox:     true,
		ReturnURL:   "https://tours.example.com/checkout/success",
		CancelURL:   "https://tours.example.com/checkout/cancelled",
		NotifyURL:   "https://tours.example.com/v1/payments/payfast/notify",
	}
}

func TestBuildRedirect(t *testing.T) {
	g := NewGateway(testConfig(), logging.Discard())
	orders := []model.Order{
		{ID: 7, Reference: "TBAAAAAAAA", CheckoutID: "chk-1", TotalCents: 1700},
		{ID: 9, Reference: "TBBBBBBBBB", CheckoutID: "chk-1", TotalCents: 250},
	}
	r, err := g.BuildRedirect(orders, checkout.Customer{FirstName: "Thandi", LastName: "Nkosi", Email: "thandi@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.payfast.co.za/eng/process", r.Action)
	keys := make([]string, len(r.Fields))
	for i, kv := range r.Fields {
		keys[i] = kv.Key
	}
	assert.Equal(t, []string{
		"merchant_id", "merchant_key", "return_url", "cancel_url", "notify_url",
		"name_first", "name_last", "email_address", "m_payment_id", "amount",
		"item_name", "item_description", "custom_str1", "signature",
	}, keys)
	assert.Equal(t, "19.50", r.Fields.Get("amount"))
	assert.Equal(t, "7,9", r.Fields.Get("custom_str1"))
	assert.Equal(t, "chk-1", r.Fields.Get("m_payment_id"))
	assert.Equal(t, "2 tour bookings", r.Fields.Get("item_name"))
	assert.Equal(t, Signature(r.Fields.Without("signature"), "jt7NOE43FZPn"), r.Fields.Get("signature"))

	_, err = g.BuildRedirect(nil, checkout.Customer{})
	assert.ErrorIs(t, err, ErrNoOrders)
}

func signedITN(passphrase, merchant string) Fields {
	var f Fields
	f.Add("m_payment_id", "chk-1")
	f.Add("pf_payment_id", "1089250")
	f.Add("payment_status", "COMPLETE")
	f.Add("amount_gross", "17.00")
	f.Add("email_address", "thandi@example.com")
	f.Add("merchant_id", merchant)
	f.Add("custom_str1", "7")
	f.Add(SignatureField, NotificationSignature(f, passphrase))
	return f
}

func TestVerify(t *testing.T) {
	g := NewGateway(testConfig(), logging.Discard())
	ctx := context.Background()

	assert.NoError(t, g.Verify(ctx, signedITN("jt7NOE43FZPn", "10000100")))
	assert.ErrorIs(t, g.Verify(ctx, signedITN("wrong", "10000100")), ErrSignatureVerificationFailed)
	assert.ErrorIs(t, g.Verify(ctx, signedITN("jt7NOE43FZPn", "999")), ErrMerchantMismatch)
}

func TestVerifyRemote(t *testing.T) {
	reply := "VALID"
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, reply)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ValidateRemote = true
	g := NewGateway(cfg, logging.Discard()).WithHTTPClient(&http.Client{
		Transport: rewriteTo(srv.URL),
	})
	ctx := context.Background()

	require.NoError(t, g.Verify(ctx, signedITN("jt7NOE43FZPn", "10000100")))
	assert.True(t, strings.HasPrefix(gotBody, "m_payment_id=chk-1&pf_payment_id=1089250"))
	assert.NotContains(t, gotBody, "signature=")

	reply = "INVALID"
	assert.ErrorIs(t, g.Verify(ctx, signedITN("jt7NOE43FZPn", "10000100")), ErrRemoteValidationFailed)
}

type rewriteTo string

func (u rewriteTo) RoundTrip(r *http.Request) (*http.Response, error) {
	req := r.Clone(r.Context())
	target, err := http.NewRequest(r.Method, string(u)+r.URL.Path, nil)
	if err != nil {
		return nil, err
	}
	req.URL = target.URL
	req.Host = target.URL.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestRenderForm(t *testing.T) {
	var f Fields
	f.Add("item_name", `Tour "A" <b>`)
	f.Add("amount", "10.00")
	page, err := RenderForm(Redirect{Action: "https://sandbox.payfast.co.za/eng/process", Fields: f})
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, `action="https://sandbox.payfast.co.za/eng/process"`)
	assert.Contains(t, html, `name="amount" value="10.00"`)
	assert.Contains(t, html, `Tour &#34;A&#34; &lt;b&gt;`)
	assert.Less(t, strings.Index(html, "item_name"), strings.Index(html, "amount"))
}
