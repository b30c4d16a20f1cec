package transport

import (
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHostPortAddr(t *testing.T) {
	assert.Equal(t, "example.com:80", HostPortAddr{"example.com", 80}.String())
	assert.Equal(t, "[::1]:8080", HostPortAddr{"::1", 8080}.String())
	assert.Equal(t, TCP, HostPortAddr{}.Protocol())
}

type stringAddr string

func (a stringAddr) Protocol() Protocol { return Pipe }
func (a stringAddr) String() string     { return string(a) }

func TestSplitAddr(t *testing.T) {
	host, port, err := SplitAddr(HostPortAddr{"example.com", 443})
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, uint16(443), port)

	host, port, err = SplitAddr(stringAddr("[::1]:8080"))
	require.NoError(t, err)
	assert.Equal(t, "::1", host)
	assert.Equal(t, uint16(8080), port)

	_, _, err = SplitAddr(stringAddr("no-port"))
	assert.Error(t, err)

	_, _, err = SplitAddr(stringAddr("host:99999"))
	assert.Error(t, err)
}

func TestTranslateNetError(t *testing.T) {
	assert.NoError(t, TranslateNetError(nil))
	assert.Equal(t, io.EOF, TranslateNetError(io.EOF))
	assert.ErrorIs(t, TranslateNetError(net.ErrClosed), ErrConnClosed)
	assert.ErrorIs(t, TranslateNetError(&net.OpError{Op: "read", Err: syscall.ECONNRESET}), ErrConnReset)
	assert.NotErrorIs(t, TranslateNetError(&net.OpError{Op: "read", Err: syscall.ECONNRESET}), ErrConnClosed)
	assert.ErrorIs(t, TranslateNetError(&net.OpError{Op: "write", Err: syscall.EPIPE}), ErrConnReset)
	assert.ErrorIs(t, TranslateNetError(&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}), ErrConnRefused)
	assert.ErrorIs(t, TranslateNetError(&net.OpError{Op: "dial", Err: syscall.ENETUNREACH}), ErrNetUnreachable)

	other := errors.New("other")
	assert.Equal(t, other, TranslateNetError(other))
}

func TestFromNetConn(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, b := net.Pipe()
	c1, c2 := FromNetConn(a, Pipe), FromNetConn(b, Pipe)
	defer c1.Close()
	defer c2.Close()

	assert.Equal(t, Pipe, c1.LocalAddr().Protocol())
	assert.Equal(t, "pipe", c1.RemoteAddr().String())

	go func() {
		_, _ = c1.Write([]byte("hello"))
	}()

	buf := make([]byte, 5)
	_, err := io.ReadFull(c2, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	c2.SetReadDeadLine(time.Now().Add(-time.Second))
	_, err = c2.Read(buf)
	assert.ErrorIs(t, err, ErrDeadLineExceeded)

	require.NoError(t, c2.Close())
	require.NoError(t, c2.Close())
	_, err = c2.Read(buf)
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestToNetConn(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	c := FromNetConn(a, TCP)
	assert.Same(t, a, ToNetConn(c))

	// Any other Conn is adapted.
	nc := ToNetConn(closedConn{})
	_, err := nc.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "pipe", nc.LocalAddr().Network())
	assert.Equal(t, "local", nc.LocalAddr().String())
	assert.NoError(t, nc.SetDeadline(time.Now()))
}

type closedConn struct{}

func (closedConn) Read([]byte) (int, error)     { return 0, ErrConnClosed }
func (closedConn) Write([]byte) (int, error)    { return 0, ErrConnClosed }
func (closedConn) Close() error                 { return nil }
func (closedConn) LocalAddr() Addr              { return stringAddr("local") }
func (closedConn) RemoteAddr() Addr             { return stringAddr("remote") }
func (closedConn) SetReadDeadLine(time.Time)    {}
func (closedConn) SetWriteDeadLine(t time.Time) {}
