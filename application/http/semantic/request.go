package semantic

import (
	"bytes"
	"io"
	"strconv"

	"nano-get/application/http"
	"nano-get/application/http/transfer"
	"nano-get/application/util/locator"

	"github.com/pkg/errors"
)

const DefaultUserAgent = "nano-get/0.1.0"

type Request struct {
	Message

	Method  Method
	Locator locator.Locator
}

// NewRequest creates a request for rawURL with the default headers:
// Host, User-Agent, Accept and Connection, in that order.
func NewRequest(method Method, rawURL string) (*Request, error) {
	if !method.IsValid() {
		return nil, errors.Errorf("method is not a valid token: %q", method)
	}

	loc, err := locator.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing locator")
	}

	return newRequest(method, loc), nil
}

// DefaultGetRequest creates a GET request for rawURL.
func DefaultGetRequest(rawURL string) (*Request, error) {
	return NewRequest(MethodGet, rawURL)
}

func newRequest(method Method, loc locator.Locator) *Request {
	return &Request{
		Message: Message{
			Version: http.Version1_1,
			Headers: NewHeaders(
				[2]string{"Host", loc.HostHeader()},
				[2]string{"User-Agent", DefaultUserAgent},
				[2]string{"Accept", "*/*"},
				// Every connection carries exactly one exchange.
				[2]string{"Connection", "close"},
			),
		},
		Method:  method,
		Locator: loc,
	}
}

// AddHeader inserts a header, or overwrites every previous value of name.
func (r *Request) AddHeader(name, value string) {
	r.Headers.Set(name, value)
}

// SetBody attaches b as the request body. A nil b removes it.
func (r *Request) SetBody(b []byte) {
	r.Body = b
}

// Serialize returns the request as it goes on the wire.
func (r *Request) Serialize() []byte {
	buf := bytes.NewBuffer(nil)
	// Writing to a bytes.Buffer never fails.
	_, _ = r.WriteTo(buf)
	return buf.Bytes()
}

// WriteTo writes the serialized request to w.
// The only possible error is the one from w, as [*http.IOError].
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	encoder := http.NewRequestEncoder(w, http.DefaultEncodeOptions)
	if err := encoder.Encode(r.RawRequest()); err != nil {
		return encoder.Written(), errors.Wrap(err, "encoding request")
	}
	return encoder.Written(), nil
}

// RawRequest converts r into its wire form. r is not modified.
func (r *Request) RawRequest() http.Request {
	headers := r.Headers.Clone()
	var body io.Reader

	// Host is mandatory in HTTP/1.1.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2-5
	if !headers.Has("Host") {
		headers = NewHeaders([2]string{"Host", r.Locator.HostHeader()})
		for _, f := range r.Headers.Fields() {
			headers.Add(f[0], f[1])
		}
	}

	if r.Body != nil {
		if transfer.IsChunked(extractTransferEncoding(headers)) {
			// A sender MUST NOT send Content-Length with Transfer-Encoding.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.2-2
			headers.Del("Content-Length")
			body = chunkedBody(r.Body)
		} else {
			headers.Set("Content-Length", strconv.Itoa(len(r.Body)))
			body = bytes.NewReader(r.Body)
		}
	}

	return http.Request{
		RequestLine: http.RequestLine{
			Method:  string(r.Method),
			Target:  r.Locator.Path,
			Version: r.Version,
		},
		Headers: headers.ToRawFields(),
		Body:    body,
	}
}

func chunkedBody(b []byte) io.Reader {
	buf := bytes.NewBuffer(nil)
	cw := transfer.NewChunkedWriter(buf, nil)
	// Writing to a bytes.Buffer never fails.
	_, _ = cw.Write(b)
	_ = cw.Close()
	return buf
}
