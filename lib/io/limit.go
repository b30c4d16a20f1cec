package iolib

import "io"

// LimitReader creates new [LimitedReader]
func LimitReader(r io.Reader, n uint) io.Reader { return &LimitedReader{r, n} }

// LimitedReader is uint port of [io.LimitedReader]
type LimitedReader struct {
	R io.Reader // underlying reader
	N uint      // max bytes remaining
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= uint(n)
	return
}

// ExactReader creates new [ExactlyReader].
func ExactReader(r io.Reader, n uint) io.Reader { return &ExactlyReader{R: r, N: n} }

// ExactlyReader reads exactly N bytes from R.
// Unlike [LimitedReader], running out of R before N bytes is an error:
// Read returns [io.ErrUnexpectedEOF] instead of [io.EOF].
type ExactlyReader struct {
	R io.Reader
	N uint // bytes remaining
}

func (e *ExactlyReader) Read(p []byte) (n int, err error) {
	if e.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > e.N {
		p = p[:e.N]
	}
	n, err = e.R.Read(p)
	e.N -= uint(n)

	if err == io.EOF {
		if e.N > 0 {
			return n, io.ErrUnexpectedEOF
		}
		// Got everything on the last read.
		return n, nil
	}
	return n, err
}
