package http

import (
	"io"

	"nano-get/application/util/locator"

	"github.com/pkg/errors"
)

var (
	ErrMalformedStatusLine = errors.New("status line is malformed")
	ErrMalformedFieldLine  = errors.New("field line is malformed")
	ErrTruncatedBody       = errors.New("body ended before its declared length")
	ErrBodyTooLarge        = errors.New("body exceeds size limit")
)

// IOError is a failure of the underlying byte stream, as opposed to
// a protocol error in the bytes it delivered.
type IOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *IOError) Cause() error  { return e.Err }
func (e *IOError) Unwrap() error { return e.Err }

// IsEndOfStream reports whether err means the stream ran out of bytes.
// A failed read that happens to wrap an EOF is still an [IOError].
func IsEndOfStream(err error) bool {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return false
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// IOErrorReader wraps every error from r, except [io.EOF], in [IOError].
func IOErrorReader(r io.Reader) io.Reader {
	if _, ok := r.(*ioErrorReader); ok {
		return r
	}
	return &ioErrorReader{r: r}
}

type ioErrorReader struct{ r io.Reader }

func (r *ioErrorReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			err = &IOError{Op: "read", Err: err}
		}
	}
	return n, err
}

// IOErrorWriter wraps every error from w in [IOError].
func IOErrorWriter(w io.Writer) io.Writer { return &ioErrorWriter{w: w} }

type ioErrorWriter struct{ w io.Writer }

func (w *ioErrorWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			err = &IOError{Op: "write", Err: err}
		}
	}
	return n, err
}

// Kind classifies err for logs and metrics.
func Kind(err error) string {
	var ioErr *IOError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, locator.ErrMalformedLocator):
		return "malformed_locator"
	case errors.Is(err, ErrMalformedStatusLine):
		return "malformed_status_line"
	case errors.Is(err, ErrMalformedFieldLine):
		return "malformed_header"
	case errors.Is(err, ErrTruncatedBody):
		return "truncated_body"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.As(err, &ioErr):
		return "io"
	default:
		return "unknown"
	}
}
