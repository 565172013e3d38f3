package payfast

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseForm decodes a form-encoded body keeping the order the fields were
// received in.  url.ParseQuery would lose that order and with it the
// ability to recompute the signature.
func ParseForm(body []byte) (Fields, error) {
	var out Fields
	for _, part := range strings.Split(string(body), "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decode field name %q: %w", k, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		out.Add(key, val)
	}
	return out, nil
}
