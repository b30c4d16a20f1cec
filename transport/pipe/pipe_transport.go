package pipe

import (
	"context"
	"sync"

	"nano-get/transport"

	"github.com/benbjohnson/clock"
)

const dialerName = "dialer"

type pipeRequest struct {
	conn     transport.Conn
	accepted chan struct{}
}

// PipeTransport connects dialers to listeners in memory.
// Listeners are keyed by the string form of their address,
// so any [transport.Addr] with a matching String() reaches them.
type PipeTransport struct {
	listeners map[string]*pipeListener
	clock     clock.Clock
	bufSize   uint

	mu sync.Mutex
}

// NewPipeTransport creates a transport handing out synchronous pipes.
func NewPipeTransport(clock clock.Clock) *PipeTransport {
	return NewBufferedPipeTransport(clock, 0)
}

// NewBufferedPipeTransport creates a transport handing out buffered pipes of bufSize.
// Zero bufSize means synchronous pipes.
func NewBufferedPipeTransport(clock clock.Clock, bufSize uint) *PipeTransport {
	return &PipeTransport{
		listeners: make(map[string]*pipeListener),
		clock:     clock,
		bufSize:   bufSize,
	}
}

var _ transport.ConnDialer = (*PipeTransport)(nil)

func (pt *PipeTransport) newPair(remote string) (local, peer transport.Conn) {
	if pt.bufSize > 0 {
		return BufferedPipe(dialerName, remote, pt.clock, pt.bufSize)
	}
	return Pipe(dialerName, remote, pt.clock)
}

func (pt *PipeTransport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pt.mu.Lock()
	listener, ok := pt.listeners[addr.String()]
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	p1, p2 := pt.newPair(addr.String())

	req := pipeRequest{
		conn:     p2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		_ = p1.Close()
		return nil, ctx.Err()
	case <-req.accepted:
	}

	return p1, nil
}

func (pt *PipeTransport) Listen(addr transport.Addr) (*pipeListener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	key := addr.String()
	if _, ok := pt.listeners[key]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	pl := &pipeListener{
		addr:      addr,
		transport: pt,
		requests:  make(chan pipeRequest),
		closed:    make(chan struct{}),
	}
	pt.listeners[key] = pl

	return pl, nil
}

type pipeListener struct {
	addr transport.Addr

	transport *PipeTransport

	requests chan pipeRequest
	closed   chan struct{}

	once sync.Once
}

var _ transport.ConnListener = (*pipeListener)(nil)

func (pl *pipeListener) Addr() transport.Addr { return pl.addr }

func (pl *pipeListener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnListenerClosed
	case request := <-pl.requests:
		request.accepted <- struct{}{}
		return request.conn, nil
	}
}

func (pl *pipeListener) Close() error {
	err := transport.ErrConnListenerClosed
	pl.once.Do(func() {
		close(pl.closed)

		pl.transport.mu.Lock()
		delete(pl.transport.listeners, pl.addr.String())
		pl.transport.mu.Unlock()

		err = nil
	})
	return err
}
