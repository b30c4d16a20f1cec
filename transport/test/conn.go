// Package test holds conformance suites for [transport.Conn] implementations.
//
// Embed [ConnTestSuite] (or [BufferedConnTestSuite]) and fill C1 and C2 with
// a connected pair in SetupTest, after calling the embedded SetupTest.
package test

import (
	"bytes"
	"io"
	"sync"
	"time"

	"nano-get/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// watchdogTimeout bounds a single test, so a deadlocked pair fails instead of hanging.
const watchdogTimeout = time.Second

type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  clock.Clock

	watchdog *time.Timer
	finished chan struct{}
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.New()
	s.finished = make(chan struct{})

	finished := s.finished
	s.watchdog = time.AfterFunc(watchdogTimeout, func() {
		select {
		case <-finished:
		default:
			s.FailNow("timeout exceeded")
		}
	})
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())

	s.NoError(s.C1.Close())
	s.NoError(s.C2.Close())

	close(s.finished)
	s.watchdog.Stop()
}

// goWait runs f on its own goroutine and returns a func waiting for it.
func goWait(f func()) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
	return wg.Wait
}

func (s *ConnTestSuite) TestReadWrite() {
	data := []byte("Hello, World!")

	wait := goWait(func() {
		n, err := s.C1.Write(data)
		s.Require().NoError(err)
		s.Equal(len(data), n)
	})
	defer wait()

	// A short buffer takes the data in two reads.
	buf := make([]byte, 10)

	n, err := s.C2.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal(data[:n], buf)

	n, err = s.C2.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(data)-len(buf), n)
	s.Equal(data[len(buf):], buf[:n])
}

func (s *ConnTestSuite) TestConcurrentWritesDontInterleave() {
	const writers = 10
	data := []byte("ABCD")

	wait := goWait(func() {
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := s.C1.Write(data)
				s.Require().NoError(err)
				s.Equal(len(data), n)
			}()
		}
		wg.Wait()
		s.Require().NoError(s.C1.Close())
	})
	defer wait()

	var received []byte
	b := make([]byte, 10)
	for {
		n, err := s.C2.Read(b)
		if err != nil {
			s.Require().ErrorIs(err, transport.ErrConnClosed)
			break
		}
		received = append(received, b[:n]...)
	}

	s.Equal(bytes.Repeat(data, writers), received)
}

func (s *ConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())

	for _, conn := range []transport.Conn{s.C1, s.C2} {
		buf := make([]byte, 10)

		n, err := conn.Read(buf)
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)

		n, err = conn.Write(buf)
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)
	}

	// Closing twice is fine.
	s.NoError(s.C1.Close())
}

func (s *ConnTestSuite) TestCloseUnblocksRead() {
	wait := goWait(func() {
		_, err := s.C1.Read(nil)
		s.ErrorIs(err, transport.ErrConnClosed)
	})
	defer wait()

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
}

// [transport.BufferedConn] takes a small write without blocking,
// so the input must be bigger than its buffer.
func blockingInput(conn transport.Conn) []byte {
	if c, ok := conn.(transport.BufferedConn); ok {
		return make([]byte, c.WriteBufSize()+1)
	}
	return []byte("hey")
}

func (s *ConnTestSuite) TestCloseUnblocksWrite() {
	input := blockingInput(s.C1)

	wait := goWait(func() {
		_, err := s.C1.Write(input)
		s.ErrorIs(err, transport.ErrConnClosed)
	})
	defer wait()

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
}

func (s *ConnTestSuite) TestReadDeadLine() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))

	n, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestWriteDeadLine() {
	s.C1.SetWriteDeadLine(s.Clock.Now().Add(-time.Second))

	n, err := s.C1.Write(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestDeadLineUnblocksRead() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(50 * time.Millisecond))

	n, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestDeadLineReset() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))

	b := make([]byte, 1)
	_, err := s.C1.Read(b)
	s.Require().ErrorIs(err, transport.ErrDeadLineExceeded)

	// Zero time clears it.
	s.C1.SetReadDeadLine(time.Time{})

	wait := goWait(func() {
		_, err := s.C2.Write([]byte("x"))
		s.NoError(err)
	})
	defer wait()

	n, err := s.C1.Read(b)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal("x", string(b))
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}

// An HTTP client reads a response with a bufio.Reader or io.ReadFull on top of the conn.
func (s *ConnTestSuite) TestReadFullAfterWrite() {
	data := bytes.Repeat([]byte("0123456789"), 10)

	wait := goWait(func() {
		n, err := s.C1.Write(data)
		s.Require().NoError(err)
		s.Equal(len(data), n)
	})
	defer wait()

	buf := make([]byte, len(data))
	_, err := io.ReadFull(s.C2, buf)
	s.Require().NoError(err)
	s.Equal(data, buf)
}
