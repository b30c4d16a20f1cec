package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"nano-get/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ChunkedReaderTestSuite struct {
	suite.Suite
}

func TestChunkedReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedReaderTestSuite))
}

func (s *ChunkedReaderTestSuite) TestRead() {
	input := []byte("" +
		"5;ext=foo\r\n" +
		"ABCDE\r\n" +
		"a\r\n" +
		"FGHIJKLNMO\r\n" +
		"0;last=\"yes\"\r\n" + // last chunk
		"Hello: World\r\n" + // trailer
		"\r\n", // empty trailer (last trailer)
	)

	trailers := make([]http.Field, 0)
	cr := NewChunkedReader(bytes.NewReader(input), &trailers)

	buf := make([]byte, 2)
	// First read reads only AB
	n, err := cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal([]byte("AB"), buf)

	buf = make([]byte, 10)
	// Second read reads all the data in first chunk.
	n, err = cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal([]byte("CDE"), buf[:n])

	// Third read reads all the data in second chunk.
	n, err = cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal([]byte("FGHIJKLNMO"), buf)

	// Fourth read reads last chunk.
	n, err = cr.Read(buf)
	s.Require().ErrorIs(err, io.EOF)
	s.Equal(0, n)

	s.Len(trailers, 1)
	expected := http.Field{Name: []byte("Hello"), Value: []byte("World")}
	s.Equal(expected, trailers[0])

	// EOF sticks.
	_, err = cr.Read(buf)
	s.ErrorIs(err, io.EOF)
}

func (s *ChunkedReaderTestSuite) TestReadAll() {
	testcases := []struct {
		desc     string
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "chunk sizes split across tiny reads",
			input:    "4\r\nWiki\r\n6\r\npedia \r\nE\r\nin \r\n\r\nchunks.\r\n0\r\n\r\n",
			expected: "Wikipedia in \r\n\r\nchunks.",
		},
		{
			desc:     "sole LF everywhere",
			input:    "3\nabc\n0\n\n",
			expected: "abc",
		},
		{
			desc:     "stream closes right after last chunk",
			input:    "3\r\nabc\r\n0\r\n",
			expected: "abc",
		},
		{
			desc:     "uppercase hex",
			input:    "A\r\n0123456789\r\n0\r\n\r\n",
			expected: "0123456789",
		},
		{
			desc:    "invalid hex",
			input:   "zz\r\nabc\r\n0\r\n\r\n",
			wantErr: http.ErrMalformedFieldLine,
		},
		{
			desc:    "signed size",
			input:   "+3\r\nabc\r\n0\r\n\r\n",
			wantErr: http.ErrMalformedFieldLine,
		},
		{
			desc:    "missing delimiter after data",
			input:   "3\r\nabcX\r\n0\r\n\r\n",
			wantErr: http.ErrMalformedFieldLine,
		},
		{
			desc:    "stream ends inside chunk data",
			input:   "a\r\nabc",
			wantErr: http.ErrTruncatedBody,
		},
		{
			desc:    "stream ends before any chunk",
			input:   "",
			wantErr: http.ErrTruncatedBody,
		},
		{
			desc:    "stream ends before last chunk",
			input:   "3\r\nabc\r\n",
			wantErr: http.ErrTruncatedBody,
		},
		{
			desc:    "malformed trailer",
			input:   "0\r\nno colon\r\n\r\n",
			wantErr: http.ErrMalformedFieldLine,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			r := iotest.OneByteReader(strings.NewReader(tc.input))
			got, err := io.ReadAll(NewChunkedReader(r, nil))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, string(got))
		})
	}
}

func (s *ChunkedReaderTestSuite) TestStreamFailureIsIOError() {
	for _, prefix := range []string{
		"",
		"5\r\nAB",
		"5\r\nABCDE\r\n0\r\nServer: nan",
	} {
		failure := &http.IOError{Op: "read", Err: io.ErrUnexpectedEOF}
		r := io.MultiReader(strings.NewReader(prefix), iotest.ErrReader(failure))

		_, err := io.ReadAll(NewChunkedReader(r, nil))

		var ioErr *http.IOError
		s.ErrorAs(err, &ioErr, "prefix %q", prefix)
		s.NotErrorIs(err, http.ErrTruncatedBody, "prefix %q", prefix)
	}
}

func (s *ChunkedReaderTestSuite) TestReusesBufferedReader() {
	br := bufio.NewReader(strings.NewReader("1\r\nx\r\n0\r\n\r\nrest"))
	cr := NewChunkedReader(br, nil)

	got, err := io.ReadAll(cr)
	s.Require().NoError(err)
	s.Equal("x", string(got))

	rest, err := io.ReadAll(br)
	s.Require().NoError(err)
	s.Equal("rest", string(rest))
}

func (s *ChunkedReaderTestSuite) TestDecodeChunk() {
	testcases := []struct {
		desc     string
		input    []byte
		expected Chunk
		wantErr  bool
	}{
		{
			desc: "example chunk",
			input: []byte(
				"5;ext=foo\r\n" +
					"ABCDE\r\n",
			),
			expected: Chunk{
				Size: 5,
				Extensions: [][2]string{
					{"ext", "foo"},
				},
			},
		},
		{
			desc: "BWS inside chunk",
			input: []byte(
				"5 ; ext = foo\r\n" +
					"ABCDE\r\n",
			),
			expected: Chunk{
				Size: 5,
				Extensions: [][2]string{
					{"ext", "foo"},
				},
			},
		},
		{
			desc:    "malformed chunk (empty)",
			input:   []byte("\r\n"),
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			cr := NewChunkedReader(bytes.NewReader(tc.input), nil)

			err := cr.decodeChunk()
			if tc.wantErr {
				s.Error(err)
				return
			}

			s.NoError(err)

			data, err := io.ReadAll(cr.chunk.data)
			s.NoError(err)

			cr.chunk.data = nil

			s.Equal(tc.expected, *cr.chunk)
			s.Len(data, int(cr.chunk.Size)+2) // ignore crlf
		})
	}
}

func TestDecodeChunkSize(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected uint
		wantErr  bool
	}{
		{
			desc:     "normal hex",
			input:    []byte("FF"),
			expected: 0xFF,
		},
		{
			desc:     "leading zeros",
			input:    []byte("000a"),
			expected: 0xa,
		},
		{
			desc:    "invalid hex",
			input:   []byte("haha this aint hex"),
			wantErr: true,
		},
		{
			desc:    "empty",
			input:   []byte(""),
			wantErr: true,
		},
		{
			desc:    "hex too long",
			input:   []byte("FFFFFFFFFFFFFFFFFF"), // 9 bytes
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			size, err := decodeChunkSize(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, size)
		})
	}
}

func (s *ChunkedReaderTestSuite) TestDecodeTrailers() {
	r := strings.NewReader(
		"" +
			"Hello: World\r\n" +
			"Foo: Bar\r\n" +
			"\r\n",
	)
	expected := []http.Field{
		{Name: []byte("Hello"), Value: []byte("World")},
		{Name: []byte("Foo"), Value: []byte("Bar")},
	}

	store := make([]http.Field, 0)
	cr := NewChunkedReader(r, &store)

	s.NoError(cr.decodeTrailers())
	s.Equal(expected, store)
}

type ChunkedWriterTestSuite struct {
	suite.Suite
}

func TestChunkedWriterTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedWriterTestSuite))
}

func (s *ChunkedWriterTestSuite) TestWrite() {
	buf := bytes.NewBuffer(nil)

	cw := NewChunkedWriter(buf, nil)

	// Empty write is ignored
	n, err := cw.Write(nil)
	s.Require().NoError(err)
	s.Require().Zero(n)
	s.Require().Empty(buf.Bytes())

	p := []byte("ABC")

	expected := []byte("" +
		"3\r\n" +
		"ABC\r\n",
	)

	n, err = cw.Write(p)
	s.Require().NoError(err)
	s.Equal(len(p), n)
	s.Equal(expected, buf.Bytes())
}

func (s *ChunkedWriterTestSuite) TestClose() {
	trailers := []http.Field{{Name: []byte("foo"), Value: []byte("bar")}}
	buf := bytes.NewBuffer(nil)

	cw := NewChunkedWriter(buf, &trailers)

	expected := []byte("" +
		"0\r\n" +
		"foo: bar\r\n" +
		"\r\n",
	)

	err := cw.Close()
	s.Require().NoError(err)
	s.Equal(expected, buf.Bytes())
}

func (s *ChunkedWriterTestSuite) TestEncodeChunk() {
	chunk := Chunk{
		Size: 0xF,
		Extensions: [][2]string{
			{"foo", "bar"},
		},
		data: bytes.NewBuffer([]byte("123456789ABCDEF")),
	}

	expected := []byte("" +
		"f;foo=bar\r\n" +
		"123456789ABCDEF\r\n",
	)

	buf := bytes.NewBuffer(nil)

	n, err := NewChunkedWriter(buf, nil).encodeChunk(chunk)
	s.Require().NoError(err)
	s.Equal(0xF, n)

	s.Equal(expected, buf.Bytes())
}

func (s *ChunkedWriterTestSuite) TestEncodeTrailersNil() {
	expected := []byte("\r\n")

	buf := bytes.NewBuffer(nil)

	s.Require().NoError(NewChunkedWriter(buf, nil).encodeTrailers())
	s.Equal(expected, buf.Bytes())
}

func (s *ChunkedWriterTestSuite) TestRoundTrip() {
	buf := bytes.NewBuffer(nil)
	cw := NewChunkedWriter(buf, nil)

	for _, p := range []string{"hello ", "chunked ", "world"} {
		_, err := cw.Write([]byte(p))
		s.Require().NoError(err)
	}
	s.Require().NoError(cw.Close())

	got, err := io.ReadAll(NewChunkedReader(buf, nil))
	s.Require().NoError(err)
	s.Equal("hello chunked world", string(got))
}

func TestReadLine(t *testing.T) {
	for _, in := range []string{"hello\r\n", "hello\n"} {
		result, err := readLine(bufio.NewReader(strings.NewReader(in)))
		assert.NoError(t, err)
		assert.Equal(t, []byte("hello"), result)
	}
}

func TestWriteLine(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, writeLine(buf, []byte("hello")))
	assert.Equal(t, []byte("hello\r\n"), buf.Bytes())
}

func TestParseCodingsBasic(t *testing.T) {
	assert.Equal(t, []Coding{CodingGzip, CodingChunked}, ParseCodings("gzip, Chunked"))
	assert.Equal(t, []Coding{CodingChunked}, ParseCodings(" chunked ;q=1 ,"))
	assert.Empty(t, ParseCodings(""))

	assert.True(t, IsChunked(ParseCodings("gzip, CHUNKED")))
	assert.False(t, IsChunked(ParseCodings("gzip")))
}
