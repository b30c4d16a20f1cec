package semantic

import (
	"bufio"
	"io"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"nano-get/application/http"
	"nano-get/application/http/semantic/status"
	"nano-get/application/http/transfer"
	iolib "nano-get/lib/io"

	"github.com/pkg/errors"
)

type Response struct {
	Message

	Status status.Status
	// Date is zero when the field is absent or unparsable.
	Date time.Time
}

type ParseResponseOptions struct {
	ParseMessageOptions
	Decode http.DecodeOptions

	// RequestMethod is the method of the request being answered.
	// Responses to HEAD never carry a body.
	RequestMethod Method

	// MaxBodySize fails parsing with [http.ErrBodyTooLarge]
	// when the body is larger than this. Zero means no limit.
	MaxBodySize uint
}

var DefaultParseResponseOptions = ParseResponseOptions{
	Decode: http.DefaultDecodeOptions,
}

// ReadResponse reads a whole response from r: status line, headers, and
// the body framed by Transfer-Encoding, Content-Length or the end of stream.
//
// Errors match [http.ErrMalformedStatusLine], [http.ErrMalformedFieldLine],
// [http.ErrTruncatedBody], [http.ErrBodyTooLarge] or are [*http.IOError].
func ReadResponse(r io.Reader, opts ParseResponseOptions) (*Response, error) {
	decoder := http.NewResponseDecoder(r, opts.Decode)

	var raw http.Response
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}

	response, err := ResponseFrom(&raw, opts.ParseMessageOptions)
	if err != nil {
		return nil, err
	}

	response.Body, err = response.readBody(decoder.Reader(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}

	return response, nil
}

// ResponseFrom builds a response from its status line and headers.
// The body is left for the caller to read.
func ResponseFrom(raw *http.Response, opts ParseMessageOptions) (*Response, error) {
	response := Response{
		Status: status.Status{Code: raw.StatusCode, ReasonPhrase: raw.ReasonPhrase},
	}

	var err error
	response.Message, err = createMessage(raw.Version, raw.Headers, opts)
	if err != nil {
		return nil, err
	}

	// Best effort.
	response.Date, _ = extractDate(response.Headers)

	return &response, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func (r *Response) readBody(br *bufio.Reader, opts ParseResponseOptions) ([]byte, error) {
	switch {
	case !r.hasBody(opts.RequestMethod):
		return []byte{}, nil

	case r.IsChunked():
		var trailers []http.Field
		body, err := readAllLimited(transfer.NewChunkedReader(br, &trailers), opts.MaxBodySize)
		if err != nil {
			return nil, errors.Wrap(err, "decoding chunked body")
		}
		r.Trailers = HeadersFrom(trailers)
		return body, nil

	case r.ContentLength != nil:
		length := *r.ContentLength
		if opts.MaxBodySize > 0 && length > opts.MaxBodySize {
			return nil, errors.Wrapf(http.ErrBodyTooLarge, "Content-Length %d over limit %d", length, opts.MaxBodySize)
		}
		body, err := io.ReadAll(iolib.ExactReader(br, length))
		if err != nil {
			if http.IsEndOfStream(err) {
				return nil, errors.Wrapf(http.ErrTruncatedBody, "got %d of %d bytes", len(body), length)
			}
			return nil, err
		}
		return body, nil

	default:
		// Until close. Truncation cannot be detected here.
		return readAllLimited(br, opts.MaxBodySize)
	}
}

func (r *Response) hasBody(method Method) bool {
	if method == MethodHead {
		return false
	}
	code := r.Status.Code
	return !(status.ClassOf(code) == status.ClassInformational ||
		code == status.NoContent.Code ||
		code == status.NotModified.Code)
}

func readAllLimited(r io.Reader, limit uint) ([]byte, error) {
	// limit+1 must not wrap.
	if limit == 0 || limit == math.MaxUint {
		return io.ReadAll(r)
	}

	b, err := io.ReadAll(iolib.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if uint(len(b)) > limit {
		return nil, errors.Wrapf(http.ErrBodyTooLarge, "over limit %d", limit)
	}
	return b, nil
}

// Text returns the body as a string. Invalid UTF-8 is replaced with U+FFFD.
func (r *Response) Text() string {
	if utf8.Valid(r.Body) {
		return string(r.Body)
	}
	return strings.ToValidUTF8(string(r.Body), string(utf8.RuneError))
}

func (r *Response) Class() status.Class { return r.Status.Class() }

func extractDate(h Headers) (time.Time, error) {
	v, ok := h.Get("Date")
	if !ok {
		return time.Time{}, nil
	}

	return ParseDate(v)
}
