package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"nano-get/application/util/rule"
	bytesutil "nano-get/util/bytes"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// LenientWhitespace replaces all [rule.Whitespaces] into [rule.SP].
	// And also trims preceding and trailinig whitespace.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
	LenientWhitespace bool

	// MaxFieldLineLength sets the limit of field line length on headers.
	// Zero means no limit.
	MaxFieldLineLength uint

	// MaxStatusLineLength sets the limit of status line length.
	// Zero means no limit.
	MaxStatusLineLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:         true,
	LenientWhitespace:   false,
	MaxFieldLineLength:  0,
	MaxStatusLineLength: 0,
}

type MessageDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

var (
	errLineTooLong       = errors.New("line length exceeeds limit")
	ErrMissingCRBeforeLF = errors.New("missing CR before LF")
)

// Reader returns the buffered stream positioned after everything decoded so far.
func (md *MessageDecoder) Reader() *bufio.Reader { return md.br }

func (md *MessageDecoder) readLine(limit uint) ([]byte, error) {
	b, err := bytesutil.ReadUntilLimit(md.br, []byte{rule.LF}, limit)
	if err != nil {
		if errors.Is(err, bytesutil.ErrLimitExceeded) {
			return nil, errLineTooLong
		}
		return nil, err
	}

	b = b[:len(b)-1] // Remove LF.

	if len(b) > 0 && b[len(b)-1] == rule.CR {
		b = b[:len(b)-1] // Remove CR.
	} else if !md.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	if md.opts.LenientWhitespace {
		for _, c := range rule.Whitespaces {
			b = bytes.ReplaceAll(b, []byte{c}, []byte{rule.SP})
		}
		b = bytes.Trim(b, string([]byte{rule.SP}))

		return b, nil
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	b = bytes.ReplaceAll(b, []byte{rule.CR}, []byte{rule.SP})

	return b, nil
}

// DecodeHeaders reads field lines up to and including the empty line
// closing the header section.
func (md *MessageDecoder) DecodeHeaders(headers *[]Field) error {
	tmpHeaders := make([]Field, 0)
	for {
		fieldLine, err := md.readLine(md.opts.MaxFieldLineLength)
		if err != nil {
			switch {
			case errors.Is(err, errLineTooLong):
				return errors.Wrap(ErrMalformedFieldLine, "field line length exceeds limit")
			case errors.Is(err, ErrMissingCRBeforeLF):
				return errors.Wrap(ErrMalformedFieldLine, err.Error())
			case IsEndOfStream(err):
				return errors.Wrap(ErrMalformedFieldLine, "stream ended inside header section")
			}
			return errors.Wrap(err, "reading line")
		}

		if len(fieldLine) == 0 {
			// An empty line. This means that there are no more headers.
			break
		}

		// obs-fold: a line starting with whitespace continues the previous value.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
		if rule.IsOWS(rune(fieldLine[0])) && len(tmpHeaders) > 0 {
			last := &tmpHeaders[len(tmpHeaders)-1]
			cont := bytes.Trim(fieldLine, string(rule.OWS))
			if len(cont) > 0 {
				last.Value = bytes.Join([][]byte{last.Value, cont}, []byte{rule.SP})
			}
			continue
		}

		field, err := ParseField(fieldLine)
		if err != nil {
			return errors.Wrap(ErrMalformedFieldLine, err.Error())
		}

		tmpHeaders = append(tmpHeaders, field)
	}

	*headers = tmpHeaders

	return nil
}

type ResponseDecoder struct{ MessageDecoder }

// NewResponseDecoder creates a decoder reading from r.
// Read errors other than [io.EOF] are reported as [*IOError].
func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{
		MessageDecoder{br: bufio.NewReader(IOErrorReader(r)), opts: opts},
	}
}

// Decode reads the status line and headers.
// r MUST be a non-nil pointer. r.Body is set to the rest of the stream.
func (rd *ResponseDecoder) Decode(r *Response) error {
	if err := rd.DecodeStatusLine(&r.StatusLine); err != nil {
		return errors.Wrap(err, "parsing status line")
	}

	if err := rd.DecodeHeaders(&r.Headers); err != nil {
		return errors.Wrap(err, "parsing headers")
	}

	r.Body = rd.br

	return nil
}

func (rd *ResponseDecoder) DecodeStatusLine(statLine *StatusLine) error {
	var line []byte
	for {
		b, err := rd.readLine(rd.opts.MaxStatusLineLength)
		if err != nil {
			switch {
			case errors.Is(err, errLineTooLong):
				return errors.Wrap(ErrMalformedStatusLine, "status line length exceeds limit")
			case errors.Is(err, ErrMissingCRBeforeLF):
				return errors.Wrap(ErrMalformedStatusLine, err.Error())
			case IsEndOfStream(err):
				return errors.Wrap(ErrMalformedStatusLine, "stream ended before status line")
			}
			return errors.Wrap(err, "reading line")
		}

		// An empty line can be received before message.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(b) > 0 {
			line = b
			break
		}
	}

	parsed, err := parseStatusLine(line)
	if err != nil {
		return errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	*statLine = parsed

	return nil
}

func parseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{rule.SP}, 3)
	if len(parts) < 2 {
		return StatusLine{}, errors.Errorf("too few fields: %q", line)
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, errors.Wrap(err, "parsing version")
	}

	statusCodeStr := string(parts[1])
	if len(statusCodeStr) != 3 || !isDigits(parts[1]) {
		return StatusLine{}, errors.Errorf("status code is malformed: %q", statusCodeStr)
	}
	statusCode, err := strconv.ParseUint(statusCodeStr, 10, 64)
	if err != nil || statusCode < 100 || statusCode > 599 {
		return StatusLine{}, errors.Errorf("status code out of range: %q", statusCodeStr)
	}

	// reason-phrase is optional, and so is the SP before it.
	var reasonPhrase string
	if len(parts) == 3 {
		reasonPhrase = string(parts[2])
	}

	return StatusLine{Version: ver, StatusCode: uint(statusCode), ReasonPhrase: reasonPhrase}, nil
}
