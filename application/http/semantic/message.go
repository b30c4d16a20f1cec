package semantic

import (
	"strconv"
	"strings"

	"nano-get/application/http"
	"nano-get/application/http/transfer"

	"github.com/pkg/errors"
)

type Message struct {
	Version http.Version

	Headers Headers

	// ContentLength is nil when the field is absent or unusable.
	ContentLength    *uint
	TransferEncoding []transfer.Coding

	Body []byte

	Trailers Headers
}

type ParseMessageOptions struct {
	// RequiredFields fails parsing when any of these fields is missing.
	RequiredFields []string
}

func createMessage(
	ver http.Version,
	headers []http.Field,
	opts ParseMessageOptions,
) (msg Message, err error) {
	msg.Version = ver

	msg.Headers = HeadersFrom(headers)
	if err := assertHeaderContains(msg.Headers, opts.RequiredFields); err != nil {
		return Message{}, errors.Wrap(err, "header has missing fields")
	}

	// An unparsable Content-Length is ignored, as if it was never sent.
	msg.ContentLength, _ = extractContentLength(msg.Headers)

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1
	msg.TransferEncoding = extractTransferEncoding(msg.Headers)

	return msg, nil
}

// IsChunked reports whether chunked is among the transfer codings.
func (m *Message) IsChunked() bool {
	return transfer.IsChunked(m.TransferEncoding)
}

func assertHeaderContains(h Headers, keys []string) error {
	missing := make([]string, 0)
	for _, key := range keys {
		if !h.Has(key) {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("missing key(s): %s", missing)
	}

	return nil
}

// extractContentLength extracts content length from headers.
// Repeated identical values ("5, 5" or two lines of "5") are accepted.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6
func extractContentLength(h Headers) (*uint, error) {
	values := h.Tokens("Content-Length")
	if len(values) == 0 {
		if h.Has("Content-Length") {
			return nil, errors.New("empty Content-Length")
		}
		return nil, nil
	}

	for _, v := range values[1:] {
		if v != values[0] {
			return nil, errors.Errorf("conflicting Content-Length values: %q", values)
		}
	}

	// Any value greater than or equal to 0 is valid.
	// But let's restrict it to 64bit uint.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-10
	if strings.HasPrefix(values[0], "+") {
		return nil, errors.Errorf("signed Content-Length: %q", values[0])
	}
	len64, err := strconv.ParseUint(values[0], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Content-Length")
	}

	l := uint(len64)
	return &l, nil
}

func extractTransferEncoding(h Headers) []transfer.Coding {
	var codings []transfer.Coding
	for _, token := range h.Tokens("Transfer-Encoding") {
		codings = append(codings, transfer.ParseCodings(token)...)
	}
	return codings
}
