package transport

import (
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

type netConn struct {
	nc       net.Conn
	protocol Protocol
}

var _ Conn = (*netConn)(nil)

// FromNetConn adapts nc into a [Conn].
// Errors from nc are translated into this package's sentinels where one fits.
func FromNetConn(nc net.Conn, protocol Protocol) Conn {
	return &netConn{nc: nc, protocol: protocol}
}

func (c *netConn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, TranslateNetError(err)
}

func (c *netConn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, TranslateNetError(err)
}

func (c *netConn) Close() error {
	if err := c.nc.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *netConn) LocalAddr() Addr  { return netAddr{c.protocol, c.nc.LocalAddr()} }
func (c *netConn) RemoteAddr() Addr { return netAddr{c.protocol, c.nc.RemoteAddr()} }

func (c *netConn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *netConn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

type netAddr struct {
	protocol Protocol
	addr     net.Addr
}

func (a netAddr) Protocol() Protocol { return a.protocol }
func (a netAddr) String() string     { return a.addr.String() }

// TranslateNetError maps errors from the net package onto this package's sentinels.
// The original error text is kept. io.EOF is returned as is.
func TranslateNetError(err error) error {
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe):
		return errors.Wrap(ErrConnClosed, err.Error())
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		// Not a clean close. Must not read as end of stream.
		return errors.Wrap(ErrConnReset, err.Error())
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrap(ErrDeadLineExceeded, err.Error())
	case errors.Is(err, syscall.ECONNREFUSED):
		return errors.Wrap(ErrConnRefused, err.Error())
	case errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH):
		return errors.Wrap(ErrNetUnreachable, err.Error())
	case errors.Is(err, syscall.EADDRINUSE):
		return errors.Wrap(ErrAddrAlreadyInUse, err.Error())
	}
	return err
}

// ToNetConn exposes c as a [net.Conn], for libraries that layer on top of one.
// [ErrConnClosed] from c reads as [io.EOF].
func ToNetConn(c Conn) net.Conn {
	if nc, ok := c.(*netConn); ok {
		return nc.nc
	}
	return &connAdapter{c: c}
}

type connAdapter struct{ c Conn }

var _ net.Conn = (*connAdapter)(nil)

func (a *connAdapter) Read(p []byte) (int, error) {
	n, err := a.c.Read(p)
	if errors.Is(err, ErrConnClosed) {
		err = io.EOF
	}
	return n, err
}

func (a *connAdapter) Write(p []byte) (int, error) { return a.c.Write(p) }
func (a *connAdapter) Close() error                { return a.c.Close() }
func (a *connAdapter) LocalAddr() net.Addr         { return adaptedAddr{a.c.LocalAddr()} }
func (a *connAdapter) RemoteAddr() net.Addr        { return adaptedAddr{a.c.RemoteAddr()} }

func (a *connAdapter) SetDeadline(t time.Time) error {
	a.c.SetReadDeadLine(t)
	a.c.SetWriteDeadLine(t)
	return nil
}

func (a *connAdapter) SetReadDeadline(t time.Time) error {
	a.c.SetReadDeadLine(t)
	return nil
}

func (a *connAdapter) SetWriteDeadline(t time.Time) error {
	a.c.SetWriteDeadLine(t)
	return nil
}

type adaptedAddr struct{ a Addr }

func (a adaptedAddr) Network() string { return string(a.a.Protocol()) }
func (a adaptedAddr) String() string  { return a.a.String() }
