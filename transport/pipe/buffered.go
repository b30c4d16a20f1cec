package pipe

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"nano-get/transport"

	"github.com/benbjohnson/clock"
)

// bufferedPipe is one end of an asynchronous pair.
// Writes land in the peer's inbox and only block while it is full.
//
// See:
// - https://github.com/golang/go/issues/24205
// - https://github.com/golang/go/issues/34502
type bufferedPipe struct {
	addr Addr

	inbox *bytes.Buffer // guarded by readable.L.
	size  int

	// readable is signalled when the inbox gets data, writable when the peer's inbox gets room.
	readable, writable sync.Cond
	writeMu            sync.Mutex

	closed atomic.Bool

	rdeadline, wdeadline *deadline

	peer *bufferedPipe
}

var _ transport.Conn = (*bufferedPipe)(nil)
var _ transport.BufferedConn = (*bufferedPipe)(nil)

// BufferedPipe creates a pair of pipes. each of pipes will be asynchronous, buffered.
// Because BufferedPipe only writes/reads data through the buffer, bufSize MUST be more than 0.
func BufferedPipe(name1, name2 string, clock clock.Clock, bufSize uint) (c1, c2 *bufferedPipe) {
	if bufSize == 0 {
		panic("buffer size cannot be 0")
	}

	c1, c2 = newBufferedPipe(name1, clock, bufSize), newBufferedPipe(name2, clock, bufSize)
	c1.peer, c2.peer = c2, c1
	return c1, c2
}

func newBufferedPipe(name string, clock clock.Clock, bufSize uint) *bufferedPipe {
	p := &bufferedPipe{
		addr:  Addr{Name: name},
		inbox: bytes.NewBuffer(make([]byte, 0, bufSize)),
		size:  int(bufSize),
	}
	p.readable.L, p.writable.L = &sync.Mutex{}, &sync.Mutex{}
	p.rdeadline = newDeadline(clock, func() { broadcast(&p.readable) })
	p.wdeadline = newDeadline(clock, func() { broadcast(&p.writable) })
	return p
}

func (p *bufferedPipe) ReadBufSize() uint          { return uint(p.size) }
func (p *bufferedPipe) WriteBufSize() uint         { return uint(p.peer.size) }
func (p *bufferedPipe) LocalAddr() transport.Addr  { return p.addr }
func (p *bufferedPipe) RemoteAddr() transport.Addr { return p.peer.addr }

func (p *bufferedPipe) Close() error {
	p.closed.Store(true)

	broadcast(&p.readable)
	broadcast(&p.writable)
	broadcast(&p.peer.readable)
	broadcast(&p.peer.writable)
	return nil
}

func (p *bufferedPipe) Read(b []byte) (int, error) {
	p.readable.L.Lock()
	n, err := p.readLocked(b)
	p.readable.L.Unlock()

	if n > 0 {
		// The peer may be waiting for room.
		broadcast(&p.peer.writable)
	}
	return n, err
}

func (p *bufferedPipe) readLocked(b []byte) (int, error) {
	for {
		if p.rdeadline.exceeded() {
			return 0, transport.ErrDeadLineExceeded
		}

		// Data already buffered outlives Close.
		if p.inbox.Len() > 0 {
			return p.inbox.Read(b)
		}

		if p.closed.Load() || p.peer.closed.Load() {
			return 0, transport.ErrConnClosed
		}

		p.readable.Wait()
	}
}

func (p *bufferedPipe) Write(b []byte) (n int, err error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.writable.L.Lock()
	defer p.writable.L.Unlock()

	for {
		if p.wdeadline.exceeded() {
			return n, transport.ErrDeadLineExceeded
		}

		if p.closed.Load() || p.peer.closed.Load() {
			return n, transport.ErrConnClosed
		}

		if len(b) == 0 {
			return n, nil
		}

		delivered := p.peer.deliver(b)
		b = b[delivered:]
		n += delivered

		if delivered == 0 {
			p.writable.Wait()
		}
	}
}

// deliver copies as much of b as fits into p's inbox.
func (p *bufferedPipe) deliver(b []byte) int {
	p.readable.L.Lock()
	defer p.readable.L.Unlock()

	n := min(len(b), p.size-p.inbox.Len())
	if n > 0 {
		p.inbox.Write(b[:n])
		p.readable.Broadcast()
	}
	return n
}

func (p *bufferedPipe) SetReadDeadLine(t time.Time)  { p.rdeadline.set(t) }
func (p *bufferedPipe) SetWriteDeadLine(t time.Time) { p.wdeadline.set(t) }

func broadcast(c *sync.Cond) {
	c.L.Lock()
	c.Broadcast()
	c.L.Unlock()
}
