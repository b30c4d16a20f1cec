package transfer

import (
	"bufio"
	"bytes"
	"io"
	"math/big"
	"strconv"

	"nano-get/application/http"
	"nano-get/application/util/rule"
	iolib "nano-get/lib/io"
	bytesutil "nano-get/util/bytes"

	"github.com/pkg/errors"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
type Chunk struct {
	Size       uint
	Extensions [][2]string
	data       io.Reader
}

type ChunkedReader struct {
	br    *bufio.Reader
	chunk *Chunk
	read  uint // reset for each chunk
	err   error

	// trailerStore points at external trailer storage.
	trailerStore *[]http.Field
}

var _ io.Reader = (*ChunkedReader)(nil)

// NewChunkedReader converts chunked http message into byte stream.
// if trailerStore is not nil, it will be filled on last Read.
//
// Malformed framing is reported as [http.ErrMalformedFieldLine],
// a stream ending inside a chunk as [http.ErrTruncatedBody].
func NewChunkedReader(r io.Reader, trailerStore *[]http.Field) *ChunkedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ChunkedReader{
		br:           br,
		trailerStore: trailerStore,
	}
}

func (cr *ChunkedReader) Read(b []byte) (int, error) {
	if cr.err != nil {
		return 0, cr.err
	}
	if len(b) == 0 {
		return 0, nil
	}

	n, err := cr.read0(b)
	if err != nil {
		cr.err = err
	}
	return n, err
}

func (cr *ChunkedReader) read0(b []byte) (int, error) {
	if cr.chunk == nil {
		if err := cr.decodeChunk(); err != nil {
			return 0, errors.Wrap(err, "decoding chunk")
		}

		if cr.chunk.Size == 0 {
			// Last chunk. Its extensions are dropped.
			cr.chunk = nil
			if err := cr.decodeTrailers(); err != nil {
				return 0, errors.Wrap(err, "decoding trailer")
			}
			return 0, io.EOF
		}
	}

	remain := cr.chunk.Size - cr.read
	if uint(len(b)) > remain {
		b = b[:remain]
	}

	n, err := cr.chunk.data.Read(b)
	cr.read += uint(n)
	if err != nil {
		if err == io.EOF && cr.read < cr.chunk.Size {
			return n, errors.Wrap(http.ErrTruncatedBody, "stream ended inside chunk data")
		}
		if err != io.EOF {
			return n, errors.Wrap(err, "reading chunk data")
		}
	}

	if cr.read == cr.chunk.Size {
		if err := cr.readDataTerminator(); err != nil {
			return n, err
		}

		cr.chunk = nil
		cr.read = 0
	}

	return n, nil
}

// readDataTerminator consumes the CRLF (or sole LF) after chunk data.
func (cr *ChunkedReader) readDataTerminator() error {
	c, err := cr.br.ReadByte()
	if err == nil && c == rule.CR {
		c, err = cr.br.ReadByte()
	}
	if err != nil {
		if err == io.EOF {
			return errors.Wrap(http.ErrTruncatedBody, "stream ended before chunk delimiter")
		}
		return errors.Wrap(err, "reading chunk delimiter")
	}

	if c != rule.LF {
		return errors.Wrap(http.ErrMalformedFieldLine, "CRLF delimiter not found after chunk data")
	}

	return nil
}

func (cr *ChunkedReader) decodeChunk() error {
	line, err := readLine(cr.br)
	if err != nil {
		if http.IsEndOfStream(err) {
			return errors.Wrap(http.ErrTruncatedBody, "stream ended before last chunk")
		}
		return err
	}

	parts := bytes.Split(line, []byte{';'})

	sizeRaw := bytes.TrimFunc(parts[0], rule.IsWhitespace)
	chunkSize, err := decodeChunkSize(sizeRaw)
	if err != nil {
		return errors.Wrap(http.ErrMalformedFieldLine, err.Error())
	}

	// Decode chunk extensions
	parts = parts[1:]
	extensions := make([][2]string, 0)
	for _, part := range parts {
		k, v, _ := bytes.Cut(part, []byte{'='})
		// Trim BWS.
		k = bytes.TrimFunc(k, rule.IsWhitespace)
		v = bytes.TrimFunc(v, rule.IsWhitespace)

		extensions = append(extensions, [2]string{
			string(k),
			string(rule.Unquote(v)),
		})
	}

	cr.chunk = &Chunk{
		Size:       chunkSize,
		Extensions: extensions,
		data:       cr.br,
	}

	return nil
}

func decodeChunkSize(b []byte) (uint, error) {
	if len(b) == 0 {
		return 0, errors.New("empty chunk size")
	}
	// big.Int accepts a sign, chunk-size does not.
	for _, c := range b {
		if !rule.IsHex(rune(c)) {
			return 0, errors.Errorf("failed to decode hex: %q", string(b))
		}
	}

	n, ok := big.NewInt(0).SetString(string(b), 16)
	if !ok {
		return 0, errors.Errorf("failed to decode hex: %q", string(b))
	}

	if n.BitLen() > 64 {
		return 0, errors.Errorf("chunk size larger than 64bit: %dbits", n.BitLen())
	}

	size := uint(n.Uint64())
	return size, nil
}

func (cr *ChunkedReader) decodeTrailers() error {
	fields := make([]http.Field, 0)
	defer func() {
		if cr.trailerStore != nil {
			*cr.trailerStore = fields
		}
	}()

	for {
		line, err := readLine(cr.br)
		if err != nil {
			// Some servers close right after the last chunk.
			if err == io.EOF {
				return nil
			}
			if http.IsEndOfStream(err) {
				return errors.Wrap(http.ErrTruncatedBody, "stream ended inside trailer section")
			}
			return errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			// Last field.
			break
		}

		field, err := http.ParseField(line)
		if err != nil {
			return errors.Wrap(http.ErrMalformedFieldLine, err.Error())
		}

		fields = append(fields, field)
	}

	return nil
}

type ChunkedWriter struct {
	w         io.Writer
	headerBuf *bytes.Buffer

	// trailerStore points at external trailer storage.
	trailerStore *[]http.Field
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

// NewChunkedWriter encodes everything written into chunks.
// Close writes the last chunk, and the trailers from trailerStore if it is not nil.
func NewChunkedWriter(w io.Writer, trailerStore *[]http.Field) *ChunkedWriter {
	return &ChunkedWriter{
		w:            w,
		headerBuf:    bytes.NewBuffer(nil),
		trailerStore: trailerStore,
	}
}

func (cw *ChunkedWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		// We should ignore 0 length chunks since it means EOF.
		return 0, nil
	}

	chunk := Chunk{
		Size: uint(len(p)),
		data: bytes.NewReader(p),
	}

	n, err = cw.encodeChunk(chunk)
	if err != nil {
		return n, errors.Wrap(err, "encoding chunk")
	}

	return n, nil
}

func (cw *ChunkedWriter) Close() error {
	if _, err := cw.encodeChunk(Chunk{Size: 0}); err != nil {
		return errors.Wrap(err, "encoding chunk")
	}

	if err := cw.encodeTrailers(); err != nil {
		return errors.Wrap(err, "encoding trailers")
	}

	return nil
}

func (cw *ChunkedWriter) encodeChunk(chunk Chunk) (n int, err error) {
	// size and extensions
	buf := cw.headerBuf
	buf.Reset()
	buf.WriteString(strconv.FormatUint(uint64(chunk.Size), 16))
	for _, ext := range chunk.Extensions {
		buf.WriteByte(';')
		buf.WriteString(ext[0])
		if ext[1] != "" {
			buf.WriteByte('=')
			buf.WriteString(ext[1])
		}
	}

	if err := writeLine(cw.w, buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "writing chunk header")
	}

	if chunk.Size == 0 {
		// Last chunk. only write header.
		return 0, nil
	}

	n64, err := io.Copy(cw.w, chunk.data)
	if err != nil {
		return int(n64), errors.Wrap(err, "writing data")
	}

	if err := writeLine(cw.w, nil); err != nil {
		return int(n64), errors.Wrap(err, "writing chunk delimiter")
	}

	return int(n64), nil
}

func (cw *ChunkedWriter) encodeTrailers() error {
	if cw.trailerStore != nil {
		for _, field := range *cw.trailerStore {
			if err := writeLine(cw.w, field.Text()); err != nil {
				return errors.Wrap(err, "writing trailer")
			}
		}
	}

	if err := writeLine(cw.w, nil); err != nil {
		return errors.Wrap(err, "writing last trailer line")
	}

	return nil
}

// readLine reads until LF and cuts the line terminator.
// CR before LF is optional.
func readLine(br *bufio.Reader) (line []byte, err error) {
	line, err = bytesutil.ReadUntil(br, []byte{rule.LF})
	if err != nil {
		return nil, err
	}

	line = line[:len(line)-1]
	line = bytes.TrimSuffix(line, []byte{rule.CR})

	return line, nil
}

func writeLine(w io.Writer, line []byte) error {
	b := make([]byte, 0, len(line)+len(rule.CRLF))
	b = append(append(b, line...), rule.CRLF...)

	if _, err := iolib.WriteFull(w, b); err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}
