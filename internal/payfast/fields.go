// Package payfast speaks the PayFast redirect and ITN protocol: ordered
// field lists, MD5 signatures, the outbound payment form and inbound
// notification verification.
package payfast

import "strings"

// Field is one key/value pair.
type Field struct {
	Key   string
	Value string
}

// Fields keeps pairs in the order they were added.  Signatures depend on
// that order, so it is never sorted.
type Fields []Field

// Add appends a pair.
func (f *Fields) Add(key, value string) {
	*f = append(*f, Field{Key: key, Value: value})
}

// Get returns the first value for key.
func (f Fields) Get(key string) string {
	for _, kv := range f {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	for _, kv := range f {
		if kv.Key == key {
			return true
		}
	}
	return false
}

// Without returns a copy minus every pair with key.
func (f Fields) Without(key string) Fields {
	out := make(Fields, 0, len(f))
	for _, kv := range f {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	return out
}

// Map flattens to a map, first value wins.  Only for logging and storage.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, kv := range f {
		if _, ok := m[kv.Key]; !ok {
			m[kv.Key] = kv.Value
		}
	}
	return m
}

// Encode renders the pairs as an application/x-www-form-urlencoded body in
// order, PHP style.
func (f Fields) Encode() string {
	var b strings.Builder
	for i, kv := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(urlencode(kv.Value))
	}
	return b.String()
}
