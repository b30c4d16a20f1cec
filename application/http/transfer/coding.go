package transfer

import (
	"strings"

	"nano-get/application/util/rule"
)

// Coding is a transfer coding name, always lowercase.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7
type Coding string

const (
	CodingChunked  Coding = "chunked"
	CodingGzip     Coding = "gzip"
	CodingDeflate  Coding = "deflate"
	CodingCompress Coding = "compress"
)

// ParseCodings splits a Transfer-Encoding field value into codings,
// in the order they were applied. Parameters are dropped.
func ParseCodings(value string) []Coding {
	codings := make([]Coding, 0)
	for _, part := range strings.Split(value, ",") {
		name, _, _ := strings.Cut(part, ";")
		name = strings.TrimFunc(name, rule.IsWhitespace)
		if name == "" {
			continue
		}
		codings = append(codings, Coding(strings.ToLower(name)))
	}
	return codings
}

// IsChunked reports whether chunked is among codings.
func IsChunked(codings []Coding) bool {
	for _, c := range codings {
		if c == CodingChunked {
			return true
		}
	}
	return false
}
