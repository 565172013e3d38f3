package payfast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-booking/internal/checkout"
	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/model"
)

var (
	ErrSignatureVerificationFailed = errors.New("notification signature verification failed")
	ErrMerchantMismatch            = errors.New("notification merchant id does not match")
	ErrRemoteValidationFailed      = errors.New("gateway did not confirm notification")
	ErrNoOrders                    = errors.New("no orders to pay for")
)

const maxItemField = 255

// Redirect is the browser form posted to the gateway.
type Redirect struct {
	Action string `json:"action"`
	Fields Fields `json:"-"`
}

// FieldMap is the JSON-friendly form of the redirect fields.
func (r Redirect) FieldMap() map[string]string { return r.Fields.Map() }

// Gateway builds payment requests and verifies notifications for one
// merchant account.
type Gateway struct {
	cfg    config.PayFast
	client *http.Client
	log    logrus.FieldLogger
}

func NewGateway(cfg config.PayFast, log logrus.FieldLogger) *Gateway {
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}, log: log}
}

// WithHTTPClient swaps the client used for remote validation.
func (g *Gateway) WithHTTPClient(c *http.Client) *Gateway {
	g.client = c
	return g
}

// Config returns the merchant settings in use.
func (g *Gateway) Config() config.PayFast { return g.cfg }

// BuildRedirect assembles the signed form for paying all orders of one
// checkout in a single gateway transaction.
func (g *Gateway) BuildRedirect(orders []model.Order, cust checkout.Customer) (Redirect, error) {
	if len(orders) == 0 {
		return Redirect{}, ErrNoOrders
	}
	var total int64
	ids := make([]uint64, len(orders))
	refs := make([]string, len(orders))
	for i, o := range orders {
		total += o.TotalCents
		ids[i] = o.ID
		refs[i] = o.Reference
	}
	itemName := "Tour booking " + orders[0].Reference
	if len(orders) > 1 {
		itemName = fmt.Sprintf("%d tour bookings", len(orders))
	}

	var f Fields
	f.Add("merchant_id", g.cfg.MerchantID)
	f.Add("merchant_key", g.cfg.MerchantKey)
	f.Add("return_url", g.cfg.ReturnURL)
	f.Add("cancel_url", g.cfg.CancelURL)
	f.Add("notify_url", g.cfg.NotifyURL)
	f.Add("name_first", cust.FirstName)
	f.Add("name_last", cust.LastName)
	f.Add("email_address", cust.Email)
	f.Add(FieldMerchantPaymentID, orders[0].CheckoutID)
	f.Add("amount", FormatAmount(total))
	f.Add("item_name", truncate(itemName, maxItemField))
	f.Add("item_description", truncate("Bookings: "+strings.Join(refs, ", "), maxItemField))
	f.Add(FieldOrderRef, FormatOrderIDs(ids))
	f.Add(SignatureField, Signature(f, g.cfg.Passphrase))
	return Redirect{Action: g.cfg.ProcessURL(), Fields: f}, nil
}

// Verify authenticates a received ITN: the signature must match and the
// merchant id must be ours.  With remote validation enabled the gateway is
// also asked to confirm the parameters.  Callers must not reveal which
// check failed to the sender.
func (g *Gateway) Verify(ctx context.Context, f Fields) error {
	if !VerifyNotification(f, g.cfg.Passphrase) {
		return ErrSignatureVerificationFailed
	}
	if strings.TrimSpace(f.Get(FieldMerchantID)) != g.cfg.MerchantID {
		return ErrMerchantMismatch
	}
	if g.cfg.ValidateRemote {
		return g.validateRemote(ctx, f)
	}
	return nil
}

// validateRemote posts the received parameters back to the gateway and
// expects the literal body VALID.
func (g *Gateway) validateRemote(ctx context.Context, f Fields) error {
	body := paramString(f.Without(SignatureField), false)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ValidateURL(), bytes.NewBufferString(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("validate notification: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("validate notification: %w", err)
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(b)) != "VALID" {
		g.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(b)),
		}).Warn("payfast remote validation refused notification")
		return ErrRemoteValidationFailed
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
