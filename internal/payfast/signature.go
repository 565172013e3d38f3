package payfast

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// SignatureField is the key the digest travels under.
const SignatureField = "signature"

// urlencode matches PHP urlencode: spaces become '+', hex is upper case
// and '~' is escaped.
func urlencode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}

func paramString(f Fields, skipEmpty bool) string {
	var b strings.Builder
	for _, kv := range f {
		v := strings.TrimSpace(kv.Value)
		if skipEmpty && v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(urlencode(v))
	}
	return b.String()
}

func digest(params, passphrase string) string {
	if p := strings.TrimSpace(passphrase); p != "" {
		if params != "" {
			params += "&"
		}
		params += "passphrase=" + urlencode(p)
	}
	sum := md5.Sum([]byte(params))
	return hex.EncodeToString(sum[:])
}

// Signature signs an outbound payment request.  Fields are used in the
// order given; fields whose trimmed value is empty are left out, and the
// passphrase segment is appended only when one is configured.
func Signature(f Fields, passphrase string) string {
	return digest(paramString(f.Without(SignatureField), true), passphrase)
}

// NotificationSignature recomputes the signature of a received ITN: every
// field except signature, in receipt order, blank values included.
func NotificationSignature(f Fields, passphrase string) string {
	return digest(paramString(f.Without(SignatureField), false), passphrase)
}

// VerifyNotification reports whether the ITN carries a signature matching
// its own fields.  The comparison is constant time.
func VerifyNotification(f Fields, passphrase string) bool {
	got := strings.ToLower(strings.TrimSpace(f.Get(SignatureField)))
	if got == "" {
		return false
	}
	want := NotificationSignature(f, passphrase)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
