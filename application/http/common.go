package http

import (
	"bytes"
	"io"
	"strconv"

	"nano-get/application/util/rule"

	"github.com/pkg/errors"
)

// RequestLine is the first line of a request message.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3
type RequestLine struct {
	Method  string
	Target  string
	Version Version
}

// Request is a request message as it appears on the wire.
type Request struct {
	RequestLine
	Headers []Field

	// Body is written as is. Framing is up to the caller.
	Body io.Reader
}

// StatusLine is the first line of a response message.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
type StatusLine struct {
	Version      Version
	StatusCode   uint
	ReasonPhrase string
}

// Response is a response message as it appears on the wire.
// Body is everything after the header section, unframed.
type Response struct {
	StatusLine
	Headers []Field
	Body    io.Reader
}

// [Major, Minor]
type Version [2]uint

var (
	Version1_0 = Version{1, 0}
	Version1_1 = Version{1, 1}
)

// ParseVersion parses http version text(e.g. "HTTP/1.1") into [Version].
func ParseVersion(b []byte) (Version, error) {
	prefix := []byte("HTTP/")
	if !bytes.HasPrefix(b, prefix) {
		return Version{}, errors.Errorf("http version prefix not found: %s", b)
	}

	// Get major and minor version.
	first, second, found := bytes.Cut(b[len(prefix):], []byte{'.'})
	if !found {
		return Version{}, errors.Errorf("dot seperator not found on version: %s", b)
	}

	if !isDigits(first) || !isDigits(second) {
		return Version{}, errors.Errorf("http version is not a decimal: %s", b)
	}

	major, err1 := strconv.ParseUint(string(first), 10, 64)
	minor, err2 := strconv.ParseUint(string(second), 10, 64)
	if err1 != nil || err2 != nil {
		return Version{}, errors.Errorf("http version is not convertable to int: %s", b)
	}

	return Version{uint(major), uint(minor)}, nil
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !rule.IsDigit(rune(c)) {
			return false
		}
	}
	return true
}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.WriteString("HTTP/")
	buf.WriteString(strconv.FormatUint(uint64(ver[0]), 10))
	buf.WriteByte('.')
	buf.WriteString(strconv.FormatUint(uint64(ver[1]), 10))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

type Field struct{ Name, Value []byte }

// ParseField parses a field line into name and value.
// The name is trimmed and must not be empty.
// The value is stripped of leading and trailing OWS, and may be empty.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5
func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon seperator not found on header: %q", string(fieldLine))
	}

	// RFC 9112 rejects whitespace between name and colon.
	// Real servers send it anyway, so it is trimmed instead.
	name = bytes.Trim(name, string(rule.Whitespaces))
	if len(name) == 0 {
		return Field{}, errors.Errorf("empty field name: %q", string(fieldLine))
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
	value = bytes.Trim(value, string(rule.OWS))

	return Field{Name: name, Value: value}, nil
}

func (f *Field) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write(f.Name)
	buf.WriteString(": ")
	buf.Write(f.Value)
	return buf.Bytes()
}
