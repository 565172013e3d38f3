package config

import "strings"

const (
    payFastLiveHost    = "https://www.payfast.co.za"
    payFastSandboxHost = "https://sandbox.payfast.co.za"
)

// PayFast carries the merchant credentials and callback URLs for the payment
// gateway.  It is built once at startup and injected into the gateway
// adapter; the adapter never looks settings up on its own.
type PayFast struct {
    MerchantID     string
    MerchantKey    string
    Passphrase     string
    Sandbox        bool
    ReturnURL      string
    CancelURL      string
    NotifyURL      string
    ValidateRemote bool
}

// LoadPayFast reads PAYFAST_* variables.  Callback URLs default to routes
// under the given public base URL.
func LoadPayFast(base string) PayFast {
    base = strings.TrimRight(base, "/")
    return PayFast{
        MerchantID:     envStr("PAYFAST_MERCHANT_ID", "10000100"),
        MerchantKey:    envStr("PAYFAST_MERCHANT_KEY", "46f0cd694581a"),
        Passphrase:     envStr("PAYFAST_PASSPHRASE", ""),
        Sandbox:        envBool("PAYFAST_SANDBOX", true),
        ReturnURL:      envStr("PAYFAST_RETURN_URL", base+"/checkout/success"),
        CancelURL:      envStr("PAYFAST_CANCEL_URL", base+"/checkout/cancelled"),
        NotifyURL:      envStr("PAYFAST_NOTIFY_URL", base+"/v1/payments/payfast/notify"),
        ValidateRemote: envBool("PAYFAST_VALIDATE_REMOTE", false),
    }
}

// Host returns the gateway host for the configured mode.
func (p PayFast) Host() string {
    if p.Sandbox {
        return payFastSandboxHost
    }
    return payFastLiveHost
}

// ProcessURL is where the browser form is posted.
func (p PayFast) ProcessURL() string { return p.Host() + "/eng/process" }

// ValidateURL is the server-to-server confirmation endpoint.
func (p PayFast) ValidateURL() string { return p.Host() + "/eng/query/validate" }
