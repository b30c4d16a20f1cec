package semantic

import (
	"bytes"
	"slices"
	"strings"

	"nano-get/application/http"
	"nano-get/application/util/rule"
)

// Headers is an ordered, case-insensitive multimap of header fields.
// A name that is a valid token is stored in canonical form (content-type -> Content-Type).
// The zero value is an empty header. Copies never observe each other's changes.
type Headers struct{ fields []headerField }

type headerField struct{ name, value string }

// NewHeaders creates headers from name-value pairs, in order.
// Repeated names are kept as separate values.
func NewHeaders(pairs ...[2]string) Headers {
	h := Headers{fields: make([]headerField, 0, len(pairs))}
	for _, p := range pairs {
		h.fields = append(h.fields, headerField{name: canonical(p[0]), value: p[1]})
	}
	return h
}

// HeadersFrom creates semantic header from raw fields.
// Every field line becomes its own value, so repeated lines survive.
func HeadersFrom(fields []http.Field) Headers {
	h := Headers{fields: make([]headerField, 0, len(fields))}
	for _, field := range fields {
		h.fields = append(h.fields, headerField{name: canonical(string(field.Name)), value: string(field.Value)})
	}
	return h
}

// Fields returns all the fields in insertion order, one entry per value.
func (h *Headers) Fields() [][2]string {
	fields := make([][2]string, 0, len(h.fields))
	for _, f := range h.fields {
		fields = append(fields, [2]string{f.name, f.value})
	}
	return fields
}

func (h *Headers) ToRawFields() []http.Field {
	fields := make([]http.Field, 0, len(h.fields))
	for _, f := range h.fields {
		fields = append(fields, http.Field{Name: []byte(f.name), Value: []byte(f.value)})
	}
	return fields
}

// Len returns the number of values.
func (h *Headers) Len() int { return len(h.fields) }

// Get assumes the field is a singleton field.
// Even if key has multiple values, it will only return the first element of values.
// For list-based field, use [Headers.Values].
func (h *Headers) Get(key string) (value string, ok bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			return f.value, true
		}
	}
	return "", false
}

// Values returns every value of key in order.
func (h *Headers) Values(key string) (values []string, ok bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			values = append(values, f.value)
		}
	}
	return values, len(values) > 0
}

// Tokens splits every value of a list-based field on commas.
// Quoted commas are kept and quotes removed.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.1
func (h *Headers) Tokens(key string) []string {
	values, _ := h.Values(key)
	tokens := make([]string, 0, len(values))
	for _, v := range values {
		tokens = append(tokens, tokenizeFieldValues([]byte(v))...)
	}
	return tokens
}

func (h *Headers) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Set assumes the field is a singleton field.
// It overwrites existing value instead of appending to it, keeping its position.
// For list-based field, use [Headers.Add].
func (h *Headers) Set(key, value string) {
	key = canonical(key)
	idx := -1
	kept := make([]headerField, 0, len(h.fields)+1)
	for _, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			if idx >= 0 {
				continue
			}
			idx = len(kept)
			f = headerField{name: key, value: value}
		}
		kept = append(kept, f)
	}
	h.fields = kept

	if idx < 0 {
		h.fields = append(h.fields, headerField{name: key, value: value})
	}
}

func (h *Headers) Add(key, value string) {
	h.fields = append(slices.Clip(h.fields), headerField{name: canonical(key), value: value})
}

func (h *Headers) Del(key string) {
	kept := make([]headerField, 0, len(h.fields))
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, key) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Clone returns a deep copy of h.
func (h *Headers) Clone() Headers {
	fields := make([]headerField, len(h.fields))
	copy(fields, h.fields)
	return Headers{fields: fields}
}

func canonical(s string) string {
	if rule.IsValidToken(s) {
		s = toCanonicalFieldName(s)
	}
	return s
}

// This only works for valid token.
func toCanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}

func tokenizeFieldValues(fieldValue []byte) []string {
	tokens := make([]string, 0)
	buf := bytes.NewBuffer(nil)

	parts := bytes.Split(fieldValue, []byte{','})

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4-1
	quoted := false

	for _, part := range parts {
		if quoted {
			// Comma inside quote, let's write it again.
			buf.WriteByte(',')
		}

		for idx := 0; idx < len(part); idx++ {
			c := part[idx]
			if c == '"' {
				quoted = !quoted
			}

			buf.WriteByte(c)
		}

		if !quoted {
			tokens = addToken(tokens, buf.Bytes())
			buf.Reset()
		}
	}

	if buf.Len() > 0 {
		// Quote didn't end properly.
		// At least write the raw token.
		tokens = addToken(tokens, buf.Bytes())
	}

	return tokens
}

func addToken(tokens []string, token []byte) []string {
	token = bytes.TrimFunc(token, rule.IsWhitespace)
	token = rule.Unquote(token)
	if len(token) == 0 {
		// Don't append if it's empty.
		return tokens
	}
	return append(tokens, string(token))
}
