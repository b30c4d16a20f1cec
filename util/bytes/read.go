package bytesutil

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var ErrLimitExceeded = errors.New("read limit exceeded before delimiter")

// ReadUntil reads from r until delim. The output will include delim.
func ReadUntil(r *bufio.Reader, delim []byte) ([]byte, error) {
	return ReadUntilLimit(r, delim, 0)
}

// ReadUntilLimit works like [ReadUntil], but gives up with [ErrLimitExceeded]
// once more than limit bytes were consumed without finding delim.
// Zero limit means no limit.
//
// If r hits EOF before delim, [io.ErrUnexpectedEOF] is returned.
// If r hits EOF before any byte, [io.EOF] is returned.
func ReadUntilLimit(r *bufio.Reader, delim []byte, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	last := delim[len(delim)-1]
	for {
		b, err := r.ReadSlice(last)
		buf.Write(b)

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrLimitExceeded
		}

		switch {
		case err == nil:
			if bytes.HasSuffix(buf.Bytes(), delim) {
				return buf.Bytes(), nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
			// Line is longer than bufio's buffer. Keep reading.
		case err == io.EOF:
			if buf.Len() == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
