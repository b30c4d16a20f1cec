// Package pipe implements in-memory [transport.Conn] pairs and a
// dialer/listener over them. Deadlines run on a [clock.Clock], so tests can drive them.
package pipe

import (
	"sync"
	"time"

	"nano-get/transport"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

func (p Addr) Protocol() transport.Protocol { return transport.Pipe }
func (p Addr) String() string               { return p.Name }

var _ transport.Addr = Addr{}

// pipe is one end of a synchronous pair.
// A Write hands its slice to the peer's Read and waits for it to report how much it took.
type pipe struct {
	addr Addr

	incoming chan []byte // peer's writes arrive here.
	consumed chan int    // peer's reads report back here.

	writeMu sync.Mutex // one Write at a time, so writes never interleave.

	closed    chan struct{}
	closeOnce sync.Once

	rdeadline, wdeadline *deadline

	peer *pipe
}

var _ transport.Conn = (*pipe)(nil)

// Pipe creates a pair of pipes. each of pipes will be synchronous, unbuffered.
// A Write returns once the counterpart has read all of it.
func Pipe(name1, name2 string, clock clock.Clock) (c1, c2 *pipe) {
	c1, c2 = newPipe(name1, clock), newPipe(name2, clock)
	c1.peer, c2.peer = c2, c1
	return c1, c2
}

func newPipe(name string, clock clock.Clock) *pipe {
	return &pipe{
		addr:      Addr{Name: name},
		incoming:  make(chan []byte),
		consumed:  make(chan int),
		closed:    make(chan struct{}),
		rdeadline: newDeadline(clock, nil),
		wdeadline: newDeadline(clock, nil),
	}
}

func (p *pipe) LocalAddr() transport.Addr  { return p.addr }
func (p *pipe) RemoteAddr() transport.Addr { return p.peer.addr }

func (p *pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipe) Read(b []byte) (n int, err error) {
	if err := p.check(p.rdeadline); err != nil {
		return 0, err
	}

	select {
	case data := <-p.incoming:
		n := copy(b, data)
		p.peer.consumed <- n
		return n, nil
	case <-p.closed:
		return 0, transport.ErrConnClosed
	case <-p.peer.closed:
		return 0, transport.ErrConnClosed
	case <-p.rdeadline.wait():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (p *pipe) Write(b []byte) (n int, err error) {
	if err := p.check(p.wdeadline); err != nil {
		return 0, err
	}

	if len(b) == 0 {
		return 0, nil
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	for len(b) > 0 {
		select {
		case p.peer.incoming <- b:
			taken := <-p.consumed
			b = b[taken:]
			n += taken
		case <-p.closed:
			return n, transport.ErrConnClosed
		case <-p.peer.closed:
			return n, transport.ErrConnClosed
		case <-p.wdeadline.wait():
			return n, transport.ErrDeadLineExceeded
		}
	}

	return n, nil
}

func (p *pipe) check(d *deadline) error {
	switch {
	case isClosed(p.closed), isClosed(p.peer.closed):
		return transport.ErrConnClosed
	case d.exceeded():
		return transport.ErrDeadLineExceeded
	}
	return nil
}

func (p *pipe) SetReadDeadLine(t time.Time)  { p.rdeadline.set(t) }
func (p *pipe) SetWriteDeadLine(t time.Time) { p.wdeadline.set(t) }
